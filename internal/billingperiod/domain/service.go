package domain

import (
	"context"
	"errors"
)

const DueDateLayout = "2006-01-02"

type CreateBillingPeriodRequest struct {
	AcademicYearID string `json:"academic_year_id"`
	Month          int    `json:"month"`
	Label          string `json:"label"`
	DueDate        string `json:"due_date"`
	IsActive       *bool  `json:"is_active"`
}

type UpdateBillingPeriodRequest struct {
	Label    *string `json:"label"`
	DueDate  *string `json:"due_date"`
	IsActive *bool   `json:"is_active"`
}

type ListBillingPeriodRequest struct {
	AcademicYearID string
}

type Service interface {
	Create(context.Context, CreateBillingPeriodRequest) (BillingPeriod, error)
	List(context.Context, ListBillingPeriodRequest) ([]BillingPeriod, error)
	Get(ctx context.Context, id string) (BillingPeriod, error)
	Update(ctx context.Context, id string, req UpdateBillingPeriodRequest) (BillingPeriod, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAcademicYear = errors.New("invalid_academic_year")
	ErrInvalidMonth        = errors.New("invalid_month")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidLabel        = errors.New("invalid_label")
	ErrDuplicatePeriod     = errors.New("billing_period_exists")
	ErrHasPayments         = errors.New("billing_period_has_payments")
	ErrHasFees             = errors.New("billing_period_has_fees")
	ErrNotFound            = errors.New("not_found")
)
