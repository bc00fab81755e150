package domain

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, items []*OtherPayment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OtherPayment, error)
	List(ctx context.Context, db *gorm.DB, filter ListOtherPaymentFilter, page pagination.Pagination) ([]*OtherPayment, error)
	CountStudents(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, transactionID string) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
