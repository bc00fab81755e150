package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/guard"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/message"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	sourceManual  = "manual"
	sourceWebhook = "webhook"
	sourceOther   = "other_payment"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Cfg           config.Config
	Repo          domain.Repository
	Fees          feedomain.Repository
	OtherPayments otherpaymentdomain.Service
	Notifications notificationdomain.Service
	Clock         clock.Clock
	Settings      *config.FeeSettingsHolder
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	fees          feedomain.Repository
	otherPayments otherpaymentdomain.Service
	notifications notificationdomain.Service
	clock         clock.Clock
	settings      *config.FeeSettingsHolder
	metrics       *metrics.Metrics
	webhookSecret []byte
}

func New(p Params) domain.Service {
	var secret []byte
	if v := strings.TrimSpace(p.Cfg.PaymentWebhookSecret); v != "" {
		secret = []byte(v)
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		fees:          p.Fees,
		otherPayments: p.OtherPayments,
		notifications: p.Notifications,
		clock:         p.Clock,
		settings:      p.Settings,
		metrics:       p.Metrics,
		webhookSecret: secret,
	}
}

func (s *Service) SettleFee(ctx context.Context, feeID string) (domain.SettlementResult, error) {
	id, err := parseID(feeID)
	if err != nil {
		return domain.SettlementResult{}, feedomain.ErrInvalidID
	}
	return s.settle(ctx, id, NewTransactionID(), nil, sourceManual)
}

func (s *Service) SettleOtherPayment(ctx context.Context, id string) (otherpaymentdomain.OtherPayment, error) {
	item, err := s.otherPayments.Settle(ctx, id, NewTransactionID())
	if err != nil {
		return otherpaymentdomain.OtherPayment{}, err
	}
	s.metrics.RecordFeeSettled(ctx, sourceOther)
	return item, nil
}

func (s *Service) ProcessWebhook(ctx context.Context, req domain.WebhookRequest) (domain.WebhookResult, error) {
	if err := s.verifySignature(req.Payload, req.Signature); err != nil {
		return domain.WebhookResult{}, err
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return domain.WebhookResult{}, domain.ErrInvalidPayload
	}
	payload.PaymentID = strings.TrimSpace(payload.PaymentID)
	payload.Reference = strings.TrimSpace(payload.Reference)
	payload.StudentFeeID = strings.TrimSpace(payload.StudentFeeID)

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = domain.DefaultProvider
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("provider", provider),
		zap.String("payment_id", payload.PaymentID),
		zap.String("status", payload.Status),
	)

	var feeID *snowflake.ID
	if payload.StudentFeeID != "" {
		if id, err := parseID(payload.StudentFeeID); err == nil {
			feeID = &id
		}
	}

	now := s.clock.Now()
	event := domain.EventRecord{
		ID:          s.genID.Generate(),
		Provider:    provider,
		Status:      payload.Status,
		FeeRecordID: feeID,
		Payload:     datatypes.JSON(req.Payload),
		Outcome:     domain.OutcomeReceived,
		ReceivedAt:  now,
	}
	if payload.PaymentID != "" {
		paymentID := payload.PaymentID
		event.ProviderPaymentID = &paymentID
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &event)
	if err != nil {
		return domain.WebhookResult{}, err
	}
	if !inserted {
		stored, err := s.repo.FindEvent(ctx, s.db, provider, payload.PaymentID, payload.Status)
		if err != nil {
			return domain.WebhookResult{}, err
		}
		if stored == nil {
			return domain.WebhookResult{}, domain.ErrInvalidPayload
		}
		if stored.ProcessedAt != nil {
			s.metrics.RecordPaymentWebhook(ctx, payload.Status, "duplicate")
			return domain.WebhookResult{Outcome: stored.Outcome}, domain.ErrEventAlreadyProcessed
		}
		event = *stored
	}

	result, err := s.handleWebhook(ctx, log, payload, feeID)
	if err != nil {
		return domain.WebhookResult{}, err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, event.ID, result.Outcome, s.clock.Now()); err != nil {
		log.Error("mark payment event processed", zap.Error(err))
	}
	s.metrics.RecordPaymentWebhook(ctx, payload.Status, string(result.Outcome))
	return result, nil
}

func (s *Service) handleWebhook(ctx context.Context, log *zap.Logger, payload domain.WebhookPayload, feeID *snowflake.ID) (domain.WebhookResult, error) {
	if payload.Status != domain.StatusCompleted {
		log.Info("payment webhook ignored")
		return domain.WebhookResult{Outcome: domain.OutcomeIgnored}, nil
	}
	if feeID == nil {
		log.Warn("completed payment without a usable fee reference", zap.String("student_fee_id", payload.StudentFeeID))
		return domain.WebhookResult{Outcome: domain.OutcomeIgnored}, nil
	}

	transactionID := payload.Reference
	if transactionID == "" {
		transactionID = payload.PaymentID
	}
	if transactionID == "" {
		transactionID = NewTransactionID()
	}
	var externalID *string
	if payload.PaymentID != "" {
		v := payload.PaymentID
		externalID = &v
	}

	res, err := s.settle(ctx, *feeID, transactionID, externalID, sourceWebhook)
	switch {
	case errors.Is(err, feedomain.ErrAlreadyPaid):
		log.Info("payment webhook for a fee already paid", zap.String("fee_record_id", feeID.String()))
		return domain.WebhookResult{Outcome: domain.OutcomeAlreadyPaid, FeeRecordID: feeID.String()}, nil
	case errors.Is(err, feedomain.ErrNotFound):
		log.Warn("payment webhook for unknown fee", zap.String("fee_record_id", feeID.String()))
		return domain.WebhookResult{Outcome: domain.OutcomeFeeNotFound, FeeRecordID: feeID.String()}, nil
	case err != nil:
		return domain.WebhookResult{}, err
	}

	paid, ok, err := payload.PaidAmount()
	switch {
	case err != nil:
		log.Warn("unparsable payment amount", zap.String("fee_record_id", feeID.String()), zap.ByteString("amount", payload.Amount))
	case ok && !paid.Equal(res.Fee.Amount):
		log.Warn("payment amount differs from fee amount",
			zap.String("fee_record_id", feeID.String()),
			zap.String("paid", paid.String()),
			zap.String("due", res.Fee.Amount.String()),
		)
	}
	return domain.WebhookResult{
		Outcome:          domain.OutcomeSettled,
		FeeRecordID:      feeID.String(),
		NotificationSent: res.NotificationSent,
	}, nil
}

// settle moves the fee to paid and writes the confirmation outbox row in one transaction,
// then attempts delivery. Delivery failures stay with the outbox worker.
func (s *Service) settle(ctx context.Context, feeID snowflake.ID, transactionID string, externalID *string, source string) (domain.SettlementResult, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("fee_record_id", feeID.String()), zap.String("source", source))
	settings := s.settings.Get()

	var detail feedomain.FeeDetail
	var outbox *notificationdomain.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fee, err := s.fees.FindDetail(ctx, tx, feeID)
		if err != nil {
			return err
		}
		if fee == nil {
			return feedomain.ErrNotFound
		}
		if err := guard.EnsureCanSettle(fee.Status); err != nil {
			return err
		}

		paidAt := s.clock.Now()
		ok, err := s.fees.MarkPaid(ctx, tx, feeID, paidAt, transactionID, externalID)
		if err != nil {
			return err
		}
		if !ok {
			return feedomain.ErrAlreadyPaid
		}
		fee.Status = feedomain.StatusPaid
		fee.PaymentDate = &paidAt
		fee.TransactionID = &transactionID
		fee.ExternalPaymentID = externalID
		fee.UpdatedAt = paidAt
		fee.EffectiveStatus = feedomain.StatusPaid
		detail = *fee

		data := message.FeeData(settings, fee.StudentName, fee.Amount, fee.PeriodLabel, fee.DueDate)
		data.TransactionID = transactionID
		text, err := message.Render(notificationdomain.TypePaymentConfirmed, settings.Templates, data)
		if err != nil {
			log.Error("render payment confirmation", zap.Error(err))
			return nil
		}
		n, err := s.notifications.Enqueue(ctx, tx, notificationdomain.DispatchRequest{
			StudentID:   fee.StudentID,
			FeeRecordID: &feeID,
			Type:        notificationdomain.TypePaymentConfirmed,
			Message:     text,
			Phone:       fee.ParentPhone,
		})
		switch {
		case err == nil:
			outbox = &n
		case errors.Is(err, notificationdomain.ErrMissingPhone), errors.Is(err, notificationdomain.ErrEmptyMessage):
			log.Warn("payment confirmation skipped", zap.Error(err))
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return domain.SettlementResult{}, err
	}

	s.metrics.RecordFeeSettled(ctx, source)
	log.Info("fee settled", zap.String("transaction_id", transactionID))

	result := domain.SettlementResult{Fee: detail}
	if outbox != nil {
		if err := s.notifications.Deliver(ctx, *outbox); err == nil {
			result.NotificationSent = true
		}
	}
	return result, nil
}

func (s *Service) verifySignature(payload []byte, signature string) error {
	if len(s.webhookSecret) == 0 {
		return nil
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return domain.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(Sign(s.webhookSecret, payload))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload, the value expected in X-Webhook-Signature.
func Sign(secret []byte, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// NewTransactionID returns a sortable id for payments recorded without a provider reference.
func NewTransactionID() string {
	return "TXN-" + ulid.Make().String()
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, errors.New("invalid_id")
	}
	return id, nil
}
