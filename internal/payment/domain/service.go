package domain

import (
	"context"
	"errors"

	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
)

type SettlementResult struct {
	Fee              feedomain.FeeDetail `json:"fee"`
	NotificationSent bool                `json:"notification_sent"`
}

type WebhookRequest struct {
	Provider  string
	Payload   []byte
	Signature string
}

type WebhookResult struct {
	Outcome          Outcome `json:"outcome"`
	FeeRecordID      string  `json:"fee_record_id,omitempty"`
	NotificationSent bool    `json:"notification_sent"`
}

type Service interface {
	// SettleFee marks a fee paid from the admin console.
	SettleFee(ctx context.Context, feeID string) (SettlementResult, error)
	SettleOtherPayment(ctx context.Context, id string) (otherpaymentdomain.OtherPayment, error)
	// ProcessWebhook records a provider delivery and settles the fee it names when completed.
	ProcessWebhook(ctx context.Context, req WebhookRequest) (WebhookResult, error)
}

var (
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
