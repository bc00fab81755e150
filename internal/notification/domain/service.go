package domain

import (
	"context"
	"errors"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type DispatchRequest struct {
	StudentID   snowflake.ID
	FeeRecordID *snowflake.ID
	Type        Type
	Message     string
	Phone       string
}

type ListNotificationRequest struct {
	PageToken string
	PageSize  int
	StudentID string
	Type      string
	Status    string
}

type ListNotificationFilter struct {
	StudentID *snowflake.ID
	Type      Type
	Status    Status
}

type ListNotificationResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type DeliveryReport struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// DeliveredListener runs after a row is marked sent. Errors are logged, not returned.
type DeliveredListener func(ctx context.Context, n Notification) error

type Service interface {
	// Enqueue writes a pending row using tx so it commits with the caller's state change.
	Enqueue(ctx context.Context, tx *gorm.DB, req DispatchRequest) (Notification, error)
	// Deliver makes one send attempt for a row and records the outcome.
	Deliver(ctx context.Context, n Notification) error
	// Dispatch enqueues outside any transaction and delivers immediately.
	Dispatch(ctx context.Context, req DispatchRequest) (Notification, error)
	// DeliverPending is the outbox worker pass.
	DeliverPending(ctx context.Context, limit int) (DeliveryReport, error)
	// LatestForFee reads through db so callers inside a transaction see their own writes.
	LatestForFee(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, t Type) (*Notification, error)
	List(context.Context, ListNotificationRequest) (ListNotificationResponse, error)
	OnDelivered(listener DeliveredListener)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidStudent     = errors.New("invalid_student")
	ErrInvalidType        = errors.New("invalid_notification_type")
	ErrInvalidStatus      = errors.New("invalid_notification_status")
	ErrEmptyMessage       = errors.New("empty_message")
	ErrMissingPhone       = errors.New("missing_phone")
	ErrDeliveryInProgress = errors.New("delivery_in_progress")
	ErrNotDeliverable     = errors.New("notification_not_deliverable")
	ErrNotFound           = errors.New("not_found")
)
