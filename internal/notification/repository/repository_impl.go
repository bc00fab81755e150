package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const notificationColumns = `id, student_id, fee_record_id, type, message, phone, status, attempts, next_attempt_at, last_error, sent_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.StudentID,
		n.FeeRecordID,
		n.Type,
		n.Message,
		n.Phone,
		n.Status,
		n.Attempts,
		n.NextAttemptAt,
		n.LastError,
		n.SentAt,
		n.CreatedAt,
		n.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`,
		id,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListNotificationFilter, page pagination.Pagination) ([]*domain.Notification, error) {
	var items []*domain.Notification
	stmt := db.WithContext(ctx).Model(&domain.Notification{})
	if filter.StudentID != nil {
		stmt = stmt.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, "id", page)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, now, leaseUntil time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET next_attempt_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)`,
		leaseUntil, now, id, status, now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, sent_at = ?, next_attempt_at = NULL, last_error = NULL, updated_at = ?
		 WHERE id = ?`,
		domain.StatusSent, sentAt, sentAt, id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string, nextAttemptAt *time.Time, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notifications
		 SET status = ?, attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusFailed, lastError, nextAttemptAt, now, id,
	).Error
}

func (r *repo) ListDeliverable(ctx context.Context, db *gorm.DB, now, pendingBefore time.Time, maxAttempts, limit int) ([]*domain.Notification, error) {
	var items []*domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE (status = ? AND created_at <= ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
		    OR (status = ? AND attempts < ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?)
		 ORDER BY id ASC
		 LIMIT ?`,
		domain.StatusPending, pendingBefore, now,
		domain.StatusFailed, maxAttempts, now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LatestForFee(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, t domain.Type) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE fee_record_id = ? AND type = ?
		 ORDER BY id DESC
		 LIMIT 1`,
		feeRecordID, t,
	).Scan(&n).Error
	if err != nil {
		return nil, err
	}
	if n.ID == 0 {
		return nil, nil
	}
	return &n, nil
}
