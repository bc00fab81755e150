package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// OtherPayment is an ad hoc charge outside the monthly fee cycle (uniform, trip, books).
// It never becomes overdue.
type OtherPayment struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	StudentID     snowflake.ID    `gorm:"not null" json:"student_id"`
	Name          string          `gorm:"not null" json:"name"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status        Status          `gorm:"not null" json:"status"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (OtherPayment) TableName() string { return "other_payments" }
