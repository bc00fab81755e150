package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusPaid:
		return true
	default:
		return false
	}
}

// FeeRecord is one student's charge for one billing period. A student has at most
// one record per period.
type FeeRecord struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	StudentID         snowflake.ID    `gorm:"not null" json:"student_id"`
	BillingPeriodID   snowflake.ID    `gorm:"not null" json:"billing_period_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status            Status          `gorm:"not null" json:"status"`
	PaymentDate       *time.Time      `json:"payment_date,omitempty"`
	TransactionID     *string         `json:"transaction_id,omitempty"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty"`
	ReminderSent      bool            `gorm:"not null" json:"reminder_sent"`
	NotificationSent  bool            `gorm:"not null" json:"notification_sent"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (FeeRecord) TableName() string { return "fee_records" }

func (f FeeRecord) IsOverdue() bool { return f.Status == StatusOverdue }

func (f FeeRecord) IsPaid() bool { return f.Status == StatusPaid }

// FeeDetail joins a fee record with its student and billing period.
type FeeDetail struct {
	FeeRecord
	StudentName     string    `json:"student_name"`
	ClassLabel      string    `json:"class_label"`
	ParentPhone     string    `json:"parent_phone"`
	PeriodLabel     string    `json:"period_label"`
	DueDate         time.Time `json:"due_date"`
	EffectiveStatus Status    `gorm:"-" json:"effective_status"`
}
