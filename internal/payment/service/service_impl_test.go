package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	feerepository "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/repository"
	notificationrepository "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/repository"
	notificationservice "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/service"
	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	otherpaymentrepository "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/repository"
	otherpaymentservice "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/service"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/providers/sms"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/testutil/dbtest"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubProvider struct {
	mu   sync.Mutex
	fail error
	sent []sms.Message
}

func (p *stubProvider) Send(_ context.Context, msg sms.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *stubProvider) messages() []sms.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sms.Message(nil), p.sent...)
}

type fixture struct {
	db        *gorm.DB
	svc       *Service
	provider  *stubProvider
	node      *snowflake.Node
	studentID snowflake.ID
	feeID     snowflake.ID
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	db := dbtest.Open(t)
	provider := &stubProvider{}
	clk := clock.NewFakeClock(time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
	settings := config.NewStaticFeeSettings(config.DefaultFeeSettings())
	log := zap.NewNop()

	notifications := notificationservice.New(notificationservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     notificationrepository.Provide(),
		Provider: provider,
		Clock:    clk,
		Settings: settings,
	})
	otherPayments := otherpaymentservice.New(otherpaymentservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  otherpaymentrepository.Provide(),
		Clock: clk,
	})
	svc := New(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Cfg:           cfg,
		Repo:          repository.Provide(),
		Fees:          feerepository.Provide(),
		OtherPayments: otherPayments,
		Notifications: notifications,
		Clock:         clk,
		Settings:      settings,
	}).(*Service)

	f := &fixture{db: db, svc: svc, provider: provider, node: node}

	yearID, periodID := node.Generate(), node.Generate()
	f.studentID, f.feeID = node.Generate(), node.Generate()
	require.NoError(t, db.Exec(`INSERT INTO academic_years (id, year, is_active) VALUES (?, ?, ?)`, yearID, 2025, true).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO billing_periods (id, academic_year_id, month, label, due_date, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		periodID, yearID, 3, "March 2025", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), true,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO students (id, name, class_label, enrollment_year, parent_phone, login_id, password_hash) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.studentID, "Aisha", "LKG", 2025, "+9607000001", "aisha", "x",
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO fee_records (id, student_id, billing_period_id, amount, status, reminder_sent, notification_sent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.feeID, f.studentID, periodID, "1500", "overdue", false, true, clk.Now(), clk.Now(),
	).Error)
	return f
}

func (f *fixture) feeStatus(t *testing.T) string {
	t.Helper()
	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM fee_records WHERE id = ?`, f.feeID).Scan(&status).Error)
	return status
}

func (f *fixture) webhook(payload string) (domain.WebhookResult, error) {
	return f.svc.ProcessWebhook(context.Background(), domain.WebhookRequest{Payload: []byte(payload)})
}

func TestSettleFeeMarksPaidAndSendsConfirmation(t *testing.T) {
	f := newFixture(t, config.Config{})

	res, err := f.svc.SettleFee(context.Background(), f.feeID.String())
	require.NoError(t, err)

	assert.Equal(t, feedomain.StatusPaid, res.Fee.Status)
	require.NotNil(t, res.Fee.PaymentDate)
	require.NotNil(t, res.Fee.TransactionID)
	assert.True(t, strings.HasPrefix(*res.Fee.TransactionID, "TXN-"))
	assert.True(t, res.NotificationSent)
	assert.Equal(t, "paid", f.feeStatus(t))

	msgs := f.provider.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t,
		"Payment Confirmed: We have received the payment of MVR 1500 for Aisha for March 2025. Transaction ID: "+*res.Fee.TransactionID+". Thank you!",
		msgs[0].Body,
	)
}

func TestSettleFeeTwiceIsRejected(t *testing.T) {
	f := newFixture(t, config.Config{})
	ctx := context.Background()

	_, err := f.svc.SettleFee(ctx, f.feeID.String())
	require.NoError(t, err)
	_, err = f.svc.SettleFee(ctx, f.feeID.String())
	assert.ErrorIs(t, err, feedomain.ErrAlreadyPaid)
	assert.Len(t, f.provider.messages(), 1)

	_, err = f.svc.SettleFee(ctx, "nope")
	assert.ErrorIs(t, err, feedomain.ErrInvalidID)
	_, err = f.svc.SettleFee(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, feedomain.ErrNotFound)
}

func TestSettleKeepsPaymentWhenConfirmationFails(t *testing.T) {
	f := newFixture(t, config.Config{})
	f.provider.fail = errors.New("gateway down")

	res, err := f.svc.SettleFee(context.Background(), f.feeID.String())
	require.NoError(t, err)

	assert.False(t, res.NotificationSent)
	assert.Equal(t, "paid", f.feeStatus(t))
	assert.EqualValues(t, 1, dbtest.Count(t, f.db,
		`SELECT COUNT(*) FROM notifications WHERE type = 'payment_confirmed' AND status = 'failed' AND next_attempt_at IS NOT NULL`))
}

func TestWebhookCompletedSettlesWithProviderReference(t *testing.T) {
	f := newFixture(t, config.Config{})

	res, err := f.webhook(`{"payment_id":"pay_1","status":"completed","amount":1500,"reference":"REF-9","student_fee_id":"` + f.feeID.String() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSettled, res.Outcome)
	assert.True(t, res.NotificationSent)

	var row struct {
		TransactionID     string
		ExternalPaymentID string
	}
	require.NoError(t, f.db.Raw(`SELECT transaction_id, external_payment_id FROM fee_records WHERE id = ?`, f.feeID).Scan(&row).Error)
	assert.Equal(t, "REF-9", row.TransactionID)
	assert.Equal(t, "pay_1", row.ExternalPaymentID)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM payment_events WHERE outcome = 'settled' AND processed_at IS NOT NULL`))
}

func TestWebhookRedeliveryDoesNotNotifyTwice(t *testing.T) {
	f := newFixture(t, config.Config{})
	body := `{"payment_id":"pay_1","status":"completed","student_fee_id":"` + f.feeID.String() + `"}`

	_, err := f.webhook(body)
	require.NoError(t, err)

	res, err := f.webhook(body)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
	assert.Equal(t, domain.OutcomeSettled, res.Outcome)

	res, err = f.webhook(`{"payment_id":"pay_2","status":"completed","student_fee_id":"` + f.feeID.String() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyPaid, res.Outcome)

	assert.Len(t, f.provider.messages(), 1)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE type = 'payment_confirmed'`))
}

func TestWebhookIgnoresOtherStatuses(t *testing.T) {
	f := newFixture(t, config.Config{})

	res, err := f.webhook(`{"payment_id":"pay_1","status":"failed","student_fee_id":"` + f.feeID.String() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)

	res, err = f.webhook(`{"payment_id":"pay_3","status":"completed"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)

	assert.Equal(t, "overdue", f.feeStatus(t))
	assert.Empty(t, f.provider.messages())
	assert.EqualValues(t, 2, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM payment_events`))
}

func TestWebhookStatusMustMatchExactly(t *testing.T) {
	f := newFixture(t, config.Config{})

	for i, status := range []string{"COMPLETED", "Completed", " completed "} {
		res, err := f.webhook(`{"payment_id":"pay_` + strconv.Itoa(i) + `","status":"` + status + `","student_fee_id":"` + f.feeID.String() + `"}`)
		require.NoError(t, err, status)
		assert.Equal(t, domain.OutcomeIgnored, res.Outcome, status)
	}

	assert.Equal(t, "overdue", f.feeStatus(t))
	assert.Empty(t, f.provider.messages())
}

func TestWebhookSettlesDespiteUnparsableAmount(t *testing.T) {
	f := newFixture(t, config.Config{})

	res, err := f.webhook(`{"payment_id":"pay_1","status":"completed","amount":"MVR 1500","student_fee_id":"` + f.feeID.String() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSettled, res.Outcome)
	assert.Equal(t, "paid", f.feeStatus(t))
	assert.Len(t, f.provider.messages(), 1)
}

func TestWebhookUnknownFeeIsAcknowledged(t *testing.T) {
	f := newFixture(t, config.Config{})

	res, err := f.webhook(`{"payment_id":"pay_1","status":"completed","student_fee_id":"` + f.node.Generate().String() + `"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFeeNotFound, res.Outcome)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	f := newFixture(t, config.Config{})

	_, err := f.webhook(`{"payment_id":`)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Zero(t, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM payment_events`))
}

func TestWebhookSignature(t *testing.T) {
	f := newFixture(t, config.Config{PaymentWebhookSecret: "whsec_test"})
	body := []byte(`{"payment_id":"pay_1","status":"completed","student_fee_id":"` + f.feeID.String() + `"}`)
	ctx := context.Background()

	_, err := f.svc.ProcessWebhook(ctx, domain.WebhookRequest{Payload: body})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	_, err = f.svc.ProcessWebhook(ctx, domain.WebhookRequest{Payload: body, Signature: Sign([]byte("other"), body)})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Equal(t, "overdue", f.feeStatus(t))

	res, err := f.svc.ProcessWebhook(ctx, domain.WebhookRequest{
		Payload:   body,
		Signature: "sha256=" + Sign([]byte("whsec_test"), body),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSettled, res.Outcome)
}

func TestSettleOtherPayment(t *testing.T) {
	f := newFixture(t, config.Config{})
	ctx := context.Background()

	items, err := f.svc.otherPayments.Assign(ctx, otherpaymentdomain.AssignOtherPaymentRequest{
		StudentIDs: []string{f.studentID.String()},
		Name:       "Field trip",
		Amount:     decimal.RequireFromString("45"),
	})
	require.NoError(t, err)

	paid, err := f.svc.SettleOtherPayment(ctx, items[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, otherpaymentdomain.StatusPaid, paid.Status)
	require.NotNil(t, paid.TransactionID)
	assert.True(t, strings.HasPrefix(*paid.TransactionID, "TXN-"))

	_, err = f.svc.SettleOtherPayment(ctx, items[0].ID.String())
	assert.ErrorIs(t, err, otherpaymentdomain.ErrAlreadyPaid)
}
