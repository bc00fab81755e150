package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const periodColumns = `id, academic_year_id, month, label, due_date, is_active, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, period *domain.BillingPeriod) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_periods (`+periodColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		period.ID,
		period.AcademicYearID,
		period.Month,
		period.Label,
		period.DueDate,
		period.IsActive,
		period.CreatedAt,
		period.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BillingPeriod, error) {
	var period domain.BillingPeriod
	err := db.WithContext(ctx).Raw(
		`SELECT `+periodColumns+` FROM billing_periods WHERE id = ?`,
		id,
	).Scan(&period).Error
	if err != nil {
		return nil, err
	}
	if period.ID == 0 {
		return nil, nil
	}
	return &period, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, academicYearID *snowflake.ID) ([]*domain.BillingPeriod, error) {
	var periods []*domain.BillingPeriod
	stmt := db.WithContext(ctx).Model(&domain.BillingPeriod{})
	if academicYearID != nil {
		stmt = stmt.Where("academic_year_id = ?", *academicYearID)
	}
	err := stmt.Order("academic_year_id DESC, month ASC").Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, label string, dueDate time.Time, isActive bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_periods SET label = ?, due_date = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		label, dueDate, isActive, time.Now().UTC(), id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM billing_periods WHERE id = ?`, id).Error
}

// AcademicYear returns the calendar year of an academic year and whether it exists.
func (r *repo) AcademicYear(ctx context.Context, db *gorm.DB, id snowflake.ID) (int, bool, error) {
	var row struct {
		ID   int64
		Year int
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, year FROM academic_years WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return row.Year, row.ID != 0, nil
}

// CountFees counts fee records of the period; an empty status counts all of them.
func (r *repo) CountFees(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Table("fee_records").Where("billing_period_id = ?", id)
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	err := stmt.Count(&count).Error
	return count, err
}
