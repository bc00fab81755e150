package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, period *BillingPeriod) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BillingPeriod, error)
	List(ctx context.Context, db *gorm.DB, academicYearID *snowflake.ID) ([]*BillingPeriod, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, label string, dueDate time.Time, isActive bool) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	AcademicYear(ctx context.Context, db *gorm.DB, id snowflake.ID) (int, bool, error)
	CountFees(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) (int64, error)
}
