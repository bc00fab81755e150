package domain

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)
	List(ctx context.Context, db *gorm.DB, filter ListNotificationFilter, page pagination.Pagination) ([]*Notification, error)
	// Claim leases a row for one delivery attempt; false means another worker holds it.
	Claim(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now, leaseUntil time.Time) (bool, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string, nextAttemptAt *time.Time, now time.Time) error
	ListDeliverable(ctx context.Context, db *gorm.DB, now, pendingBefore time.Time, maxAttempts, limit int) ([]*Notification, error)
	LatestForFee(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, t Type) (*Notification, error)
}
