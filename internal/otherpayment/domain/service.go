package domain

import (
	"context"
	"errors"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AssignOtherPaymentRequest struct {
	StudentIDs []string        `json:"student_ids"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

type ListOtherPaymentRequest struct {
	PageToken string
	PageSize  int
	StudentID string
	Status    string
}

type ListOtherPaymentFilter struct {
	StudentID *snowflake.ID
	Status    Status
}

type ListOtherPaymentResponse struct {
	pagination.PageInfo
	OtherPayments []OtherPayment `json:"other_payments"`
}

type Service interface {
	// Assign charges every listed student; the same name may be charged twice.
	Assign(context.Context, AssignOtherPaymentRequest) ([]OtherPayment, error)
	List(context.Context, ListOtherPaymentRequest) (ListOtherPaymentResponse, error)
	Get(ctx context.Context, id string) (OtherPayment, error)
	Settle(ctx context.Context, id string, transactionID string) (OtherPayment, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidStudentIDs = errors.New("invalid_student_ids")
	ErrInvalidStatus     = errors.New("invalid_other_payment_status")
	ErrStudentNotFound   = errors.New("student_not_found")
	ErrAlreadyPaid       = errors.New("other_payment_already_paid")
	ErrPaidLocked        = errors.New("paid_other_payment_locked")
	ErrNotFound          = errors.New("not_found")
)
