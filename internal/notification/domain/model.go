package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeFeeAssigned      Type = "fee_assigned"
	TypePaymentReminder  Type = "payment_reminder"
	TypePaymentConfirmed Type = "payment_confirmed"
)

func (t Type) Valid() bool {
	switch t {
	case TypeFeeAssigned, TypePaymentReminder, TypePaymentConfirmed:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is an outbox row: written pending, then moved to sent or failed by a delivery attempt.
type Notification struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	StudentID     snowflake.ID  `gorm:"not null" json:"student_id"`
	FeeRecordID   *snowflake.ID `json:"fee_record_id,omitempty"`
	Type          Type          `gorm:"not null" json:"type"`
	Message       string        `gorm:"not null" json:"message"`
	Phone         string        `gorm:"not null" json:"phone"`
	Status        Status        `gorm:"not null" json:"status"`
	Attempts      int           `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time    `json:"next_attempt_at,omitempty"`
	LastError     *string       `json:"last_error,omitempty"`
	SentAt        *time.Time    `json:"sent_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

// Exhausted reports whether the worker has given up on a failed row.
func (n Notification) Exhausted(maxAttempts int) bool {
	return n.Status == StatusFailed && n.Attempts >= maxAttempts
}

// Deliverable reports whether a delivery attempt may start now. Pending rows younger than
// grace belong to the request that wrote them.
func (n Notification) Deliverable(now time.Time, grace time.Duration, maxAttempts int) bool {
	leaseFree := n.NextAttemptAt == nil || !n.NextAttemptAt.After(now)
	switch n.Status {
	case StatusPending:
		return leaseFree && !n.CreatedAt.After(now.Add(-grace))
	case StatusFailed:
		return n.Attempts < maxAttempts && n.NextAttemptAt != nil && leaseFree
	default:
		return false
	}
}
