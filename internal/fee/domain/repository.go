package domain

import (
	"context"
	"time"

	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ExistingStudentIDs(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]snowflake.ID, error)
	CountStudents(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
	InsertBatch(ctx context.Context, db *gorm.DB, fees []*FeeRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeRecord, error)
	FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeDetail, error)
	ListDetails(ctx context.Context, db *gorm.DB, filter ListFeeFilter, page pagination.Pagination) ([]*FeeDetail, error)
	DetailsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*FeeDetail, error)
	StudentDetails(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]*FeeDetail, error)

	// MarkOverdue flips pending fees whose due date is strictly before today.
	MarkOverdue(ctx context.Context, db *gorm.DB, today time.Time, now time.Time) (int64, error)
	ListUnreminded(ctx context.Context, db *gorm.DB) ([]*FeeDetail, error)
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
	SetReminderSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	SetNotificationSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	// MarkPaid settles a fee that is not yet paid and reports whether this call did it.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, transactionID string, externalPaymentID *string) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	AssignableStudents(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]*studentdomain.Student, error)
}
