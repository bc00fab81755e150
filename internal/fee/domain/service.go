package domain

import (
	"context"
	"errors"

	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AssignFeesRequest struct {
	BillingPeriodID string          `json:"-"`
	StudentIDs      []string        `json:"student_ids"`
	Amount          decimal.Decimal `json:"amount"`
}

type AssignResult struct {
	Created              []FeeRecord    `json:"created"`
	Skipped              []snowflake.ID `json:"skipped"`
	NotificationsSent    int            `json:"notifications_sent"`
	NotificationFailures int            `json:"notification_failures"`
}

type SweepResult struct {
	OverdueFound     int `json:"overdue_found"`
	NewlyOverdue     int `json:"newly_overdue"`
	RemindersSent    int `json:"reminders_sent"`
	ReminderFailures int `json:"reminder_failures"`
}

type ListFeeRequest struct {
	PageToken       string
	PageSize        int
	BillingPeriodID string
	StudentID       string
	Status          string
}

type ListFeeFilter struct {
	BillingPeriodID *snowflake.ID
	StudentID       *snowflake.ID
	Status          Status
}

type ListFeeResponse struct {
	pagination.PageInfo
	Fees []FeeDetail `json:"fees"`
}

type Service interface {
	// Assign creates pending fees for the students not yet charged for the period.
	Assign(context.Context, AssignFeesRequest) (AssignResult, error)
	AssignableStudents(ctx context.Context, billingPeriodID string) ([]studentdomain.Student, error)
	// SweepOverdue flags past-due fees and sends at most one successful reminder per fee.
	SweepOverdue(context.Context) (SweepResult, error)
	List(context.Context, ListFeeRequest) (ListFeeResponse, error)
	Get(ctx context.Context, id string) (FeeDetail, error)
	Delete(ctx context.Context, id string) error
	StudentFees(ctx context.Context, studentID string) ([]FeeDetail, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStudentIDs   = errors.New("invalid_student_ids")
	ErrInvalidPeriod       = errors.New("invalid_billing_period")
	ErrInvalidStatus       = errors.New("invalid_fee_status")
	ErrPeriodNotFound      = errors.New("billing_period_not_found")
	ErrStudentNotFound     = errors.New("student_not_found")
	ErrDuplicateAssignment = errors.New("fee_already_assigned")
	ErrAlreadyPaid         = errors.New("fee_already_paid")
	ErrNotDueYet           = errors.New("fee_not_due_yet")
	ErrNotPending          = errors.New("fee_not_pending")
	ErrPaidFeeLocked       = errors.New("paid_fee_locked")
	ErrSweepInProgress     = errors.New("overdue_sweep_in_progress")
	ErrNotFound            = errors.New("not_found")
)
