package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	billingperiodrepository "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/repository"
	billingperiodservice "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/service"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/repository"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	notificationrepository "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/repository"
	notificationservice "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/service"
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

func (p *stubProvider) setFail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

func (p *stubProvider) messages() []sms.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sms.Message(nil), p.sent...)
}

var (
	dueDate = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	start   = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
)

type fixture struct {
	db       *gorm.DB
	svc      *Service
	provider *stubProvider
	clock    *clock.FakeClock
	node     *snowflake.Node
	periodID snowflake.ID
	students []snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	db := dbtest.Open(t)
	provider := &stubProvider{}
	clk := clock.NewFakeClock(start)
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
	periods := billingperiodservice.New(billingperiodservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  billingperiodrepository.Provide(),
	})
	svc := New(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          repository.Provide(),
		Periods:       periods,
		Notifications: notifications,
		Clock:         clk,
		Settings:      settings,
	}).(*Service)

	f := &fixture{db: db, svc: svc, provider: provider, clock: clk, node: node}

	yearID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO academic_years (id, year, is_active) VALUES (?, ?, ?)`,
		yearID, 2025, true,
	).Error)
	f.periodID = node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO billing_periods (id, academic_year_id, month, label, due_date, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		f.periodID, yearID, 3, "March 2025", dueDate, true,
	).Error)

	for i, name := range []string{"Aisha", "Ibrahim", "Mariyam"} {
		id := node.Generate()
		require.NoError(t, db.Exec(
			`INSERT INTO students (id, name, class_label, enrollment_year, parent_phone, login_id, password_hash) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, name, "LKG", 2025, "+960700000"+string(rune('1'+i)), "login-"+name, "x",
		).Error)
		f.students = append(f.students, id)
	}
	return f
}

func (f *fixture) studentIDs() []string {
	out := make([]string, 0, len(f.students))
	for _, id := range f.students {
		out = append(out, id.String())
	}
	return out
}

func (f *fixture) assign(t *testing.T, amount string) domain.AssignResult {
	t.Helper()
	res, err := f.svc.Assign(context.Background(), domain.AssignFeesRequest{
		BillingPeriodID: f.periodID.String(),
		StudentIDs:      f.studentIDs(),
		Amount:          decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return res
}

func TestAssignCreatesPendingFeesAndNotifiesParents(t *testing.T) {
	f := newFixture(t)

	res := f.assign(t, "1500")

	require.Len(t, res.Created, 3)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 3, res.NotificationsSent)
	assert.Zero(t, res.NotificationFailures)
	for _, fee := range res.Created {
		assert.Equal(t, domain.StatusPending, fee.Status)
		assert.True(t, fee.Amount.Equal(decimal.NewFromInt(1500)))
	}

	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE status = 'pending' AND notification_sent = ?`, true))
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE type = 'fee_assigned' AND status = 'sent'`))

	msgs := f.provider.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, []string{msgs[0].Body, msgs[1].Body, msgs[2].Body},
		"New Fee Assignment: Your child Aisha has been assigned a fee of MVR 1500 for March 2025. Due date: 3/15/2025. Please make payment before the due date.")
}

func TestAssignSkipsStudentsAlreadyCharged(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")

	res := f.assign(t, "1500")

	assert.Empty(t, res.Created)
	assert.ElementsMatch(t, f.students, res.Skipped)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE billing_period_id = ?`, f.periodID))
	assert.Len(t, f.provider.messages(), 3)
}

func TestAssignRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, domain.AssignFeesRequest{
		BillingPeriodID: f.periodID.String(),
		StudentIDs:      f.studentIDs(),
		Amount:          decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Assign(ctx, domain.AssignFeesRequest{
		BillingPeriodID: f.periodID.String(),
		Amount:          decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStudentIDs)

	_, err = f.svc.Assign(ctx, domain.AssignFeesRequest{
		BillingPeriodID: f.node.Generate().String(),
		StudentIDs:      f.studentIDs(),
		Amount:          decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrPeriodNotFound)

	_, err = f.svc.Assign(ctx, domain.AssignFeesRequest{
		BillingPeriodID: f.periodID.String(),
		StudentIDs:      append(f.studentIDs(), f.node.Generate().String()),
		Amount:          decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
	assert.Zero(t, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records`))
}

func TestAssignKeepsFeesWhenNotificationsFail(t *testing.T) {
	f := newFixture(t)
	f.provider.setFail(errors.New("gateway down"))

	res := f.assign(t, "750.25")

	assert.Len(t, res.Created, 3)
	assert.Zero(t, res.NotificationsSent)
	assert.Equal(t, 3, res.NotificationFailures)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE notification_sent = ?`, false))
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE status = 'failed' AND attempts = 1`))
}

func TestAssignableStudentsExcludesCharged(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Assign(context.Background(), domain.AssignFeesRequest{
		BillingPeriodID: f.periodID.String(),
		StudentIDs:      f.studentIDs()[:1],
		Amount:          decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	students, err := f.svc.AssignableStudents(context.Background(), f.periodID.String())
	require.NoError(t, err)
	require.Len(t, students, 2)
	for _, s := range students {
		assert.NotEqual(t, f.students[0], s.ID)
		assert.Empty(t, s.PasswordHash)
	}
}

func TestSweepUsesStrictDueDate(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")

	f.clock.Set(time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC))
	res, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.NewlyOverdue)
	assert.Zero(t, res.OverdueFound)

	f.clock.Set(time.Date(2025, 3, 16, 0, 30, 0, 0, time.UTC))
	res, err = f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewlyOverdue)
	assert.Equal(t, 3, res.OverdueFound)
	assert.Equal(t, 3, res.RemindersSent)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE status = 'overdue' AND reminder_sent = ?`, true))
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")
	f.clock.Set(time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	_, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	sentBefore := len(f.provider.messages())

	res, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.NewlyOverdue)
	assert.Equal(t, 3, res.OverdueFound)
	assert.Zero(t, res.RemindersSent)
	assert.Len(t, f.provider.messages(), sentBefore)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE type = 'payment_reminder'`))
}

func TestSweepRetriesFailedReminderAfterBackoff(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")
	f.clock.Set(time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))
	f.provider.setFail(errors.New("gateway down"))

	res, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ReminderFailures)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE reminder_sent = ?`, false))

	res, err = f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.RemindersSent)
	assert.Zero(t, res.ReminderFailures)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE type = 'payment_reminder' AND attempts = 1`))

	f.provider.setFail(nil)
	f.clock.Advance(2 * time.Minute)
	res, err = f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.RemindersSent)
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE reminder_sent = ?`, true))
	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM notifications WHERE type = 'payment_reminder'`))
}

func TestSweepNeverTouchesPaidFees(t *testing.T) {
	f := newFixture(t)
	res := f.assign(t, "1500")
	paid := res.Created[0].ID

	ok, err := f.svc.repo.MarkPaid(context.Background(), f.db, paid, start, "TXN-1", nil)
	require.NoError(t, err)
	require.True(t, ok)

	f.clock.Set(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	sweep, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sweep.NewlyOverdue)

	fee, err := f.svc.Get(context.Background(), paid.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, fee.Status)
	assert.False(t, fee.ReminderSent)
}

func TestReminderDeliveredByOutboxMarksFee(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")
	f.clock.Set(time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))
	f.provider.setFail(errors.New("gateway down"))
	_, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)

	f.provider.setFail(nil)
	f.clock.Advance(5 * time.Minute)
	report, err := f.svc.notifications.DeliverPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sent)

	assert.EqualValues(t, 3, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records WHERE reminder_sent = ?`, true))
}

func TestListReportsEffectiveStatusBeforeSweep(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")
	f.clock.Set(time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.List(context.Background(), domain.ListFeeRequest{BillingPeriodID: f.periodID.String()})
	require.NoError(t, err)
	require.Len(t, res.Fees, 3)
	for _, fee := range res.Fees {
		assert.Equal(t, domain.StatusPending, fee.Status)
		assert.Equal(t, domain.StatusOverdue, fee.EffectiveStatus)
		assert.Equal(t, "March 2025", fee.PeriodLabel)
		assert.True(t, fee.DueDate.Equal(dueDate))
	}

	_, err = f.svc.List(context.Background(), domain.ListFeeRequest{Status: "late"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeleteBlockedForPaidFee(t *testing.T) {
	f := newFixture(t)
	res := f.assign(t, "1500")
	ctx := context.Background()

	_, err := f.svc.repo.MarkPaid(ctx, f.db, res.Created[0].ID, start, "TXN-1", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, res.Created[0].ID.String()), domain.ErrPaidFeeLocked)
	require.NoError(t, f.svc.Delete(ctx, res.Created[1].ID.String()))
	assert.ErrorIs(t, f.svc.Delete(ctx, res.Created[1].ID.String()), domain.ErrNotFound)
	assert.EqualValues(t, 2, dbtest.Count(t, f.db, `SELECT COUNT(*) FROM fee_records`))
}

func TestStudentFees(t *testing.T) {
	f := newFixture(t)
	f.assign(t, "1500")

	fees, err := f.svc.StudentFees(context.Background(), f.students[1].String())
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, "Ibrahim", fees[0].StudentName)

	_, err = f.svc.StudentFees(context.Background(), f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestDeliveryListenerIgnoresOtherTypes(t *testing.T) {
	f := newFixture(t)
	n := notificationdomain.Notification{Type: notificationdomain.TypePaymentConfirmed}
	assert.NoError(t, f.svc.onNotificationDelivered(context.Background(), n))
}
