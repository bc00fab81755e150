package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerPaymentID string, status string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_payment_id, status, fee_record_id, payload, outcome, received_at, processed_at
		 FROM payment_events
		 WHERE provider = ? AND provider_payment_id = ? AND status = ?
		 LIMIT 1`,
		provider,
		providerPaymentID,
		status,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// InsertEvent reports false when the delivery was already recorded.
func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := insertEvent(db.WithContext(ctx), event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// insertEvent skips rows hitting payment_events_delivery_key. gorm renders the clause
// per dialect: ON CONFLICT on postgres and sqlite, ON DUPLICATE KEY on mysql.
func insertEvent(db *gorm.DB, event *domain.EventRecord) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_payment_id"}, {Name: "status"}},
		DoNothing: true,
	}).Create(event)
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome domain.Outcome, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET outcome = ?, processed_at = ?
		 WHERE id = ?`,
		outcome,
		processedAt,
		id,
	).Error
}
