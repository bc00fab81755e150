package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, year *domain.AcademicYear) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO academic_years (id, year, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		year.ID,
		year.Year,
		year.IsActive,
		year.CreatedAt,
		year.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AcademicYear, error) {
	var year domain.AcademicYear
	err := db.WithContext(ctx).Raw(
		`SELECT id, year, is_active, created_at, updated_at
		 FROM academic_years WHERE id = ?`,
		id,
	).Scan(&year).Error
	if err != nil {
		return nil, err
	}
	if year.ID == 0 {
		return nil, nil
	}
	return &year, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.AcademicYear, error) {
	var years []*domain.AcademicYear
	err := db.WithContext(ctx).Raw(
		`SELECT id, year, is_active, created_at, updated_at
		 FROM academic_years ORDER BY year DESC`,
	).Scan(&years).Error
	if err != nil {
		return nil, err
	}
	return years, nil
}

// Activate must run inside a transaction: it clears every other active year first.
func (r *repo) Activate(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Exec(
		`UPDATE academic_years SET is_active = ?, updated_at = ? WHERE is_active = ? AND id <> ?`,
		false, now, true, id,
	).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE academic_years SET is_active = ?, updated_at = ? WHERE id = ?`,
		true, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountPeriods(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM billing_periods WHERE academic_year_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM academic_years WHERE id = ?`, id).Error
}
