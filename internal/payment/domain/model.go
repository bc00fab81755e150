package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Provider status that settles a fee. Every other status is logged and ignored.
const StatusCompleted = "completed"

const DefaultProvider = "default"

type Outcome string

const (
	OutcomeReceived    Outcome = "received"
	OutcomeSettled     Outcome = "settled"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeFeeNotFound Outcome = "fee_not_found"
)

// EventRecord is one webhook delivery, stored before it is acted on.
type EventRecord struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider          string         `json:"provider" gorm:"type:text;not null"`
	ProviderPaymentID *string        `json:"provider_payment_id"`
	Status            string         `json:"status" gorm:"type:text;not null"`
	FeeRecordID       *snowflake.ID  `json:"fee_record_id"`
	Payload           datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Outcome           Outcome        `json:"outcome" gorm:"type:text;not null"`
	ReceivedAt        time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt       *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// WebhookPayload is the body posted by the payment provider. Amount is
// informational and kept raw so an odd provider format never rejects a delivery.
type WebhookPayload struct {
	PaymentID    string          `json:"payment_id"`
	Status       string          `json:"status"`
	Amount       json.RawMessage `json:"amount"`
	Reference    string          `json:"reference"`
	StudentFeeID string          `json:"student_fee_id"`
}

// PaidAmount parses Amount as a JSON number or numeric string. ok is false when
// the field is absent or null.
func (p WebhookPayload) PaidAmount() (amount decimal.Decimal, ok bool, err error) {
	raw := bytes.TrimSpace(p.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, false, nil
	}
	if err := amount.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, false, err
	}
	return amount, true, nil
}
