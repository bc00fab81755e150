package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, items []*domain.OtherPayment) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OtherPayment, error) {
	var item domain.OtherPayment
	err := db.WithContext(ctx).Raw(
		`SELECT id, student_id, name, amount, status, payment_date, transaction_id, created_at, updated_at
		 FROM other_payments WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOtherPaymentFilter, page pagination.Pagination) ([]*domain.OtherPayment, error) {
	stmt := db.WithContext(ctx).Model(&domain.OtherPayment{})
	if filter.StudentID != nil {
		stmt = stmt.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, "id", page)
	if err != nil {
		return nil, err
	}
	var items []*domain.OtherPayment
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountStudents(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM students WHERE id IN ?`, ids).Scan(&count).Error
	return count, err
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, transactionID string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE other_payments
		 SET status = ?, payment_date = ?, transaction_id = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusPaid, paidAt, transactionID, paidAt, id, domain.StatusPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM other_payments WHERE id = ?`, id).Error
}
