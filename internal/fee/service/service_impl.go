package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	billingperioddomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/guard"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/message"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/ratelimit"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	sweepLockJob = "overdue_sweep"
	sweepLockTTL = 10 * time.Minute
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Periods       billingperioddomain.Service
	Notifications notificationdomain.Service
	Clock         clock.Clock
	Settings      *config.FeeSettingsHolder
	Metrics       *metrics.Metrics  `optional:"true"`
	Locker        *ratelimit.Locker `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	periods       billingperioddomain.Service
	notifications notificationdomain.Service
	clock         clock.Clock
	settings      *config.FeeSettingsHolder
	metrics       *metrics.Metrics
	locker        *ratelimit.Locker
}

func New(p Params) domain.Service {
	s := &Service{
		db:            p.DB,
		log:           p.Log.Named("fee.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		periods:       p.Periods,
		notifications: p.Notifications,
		clock:         p.Clock,
		settings:      p.Settings,
		metrics:       p.Metrics,
		locker:        p.Locker,
	}
	p.Notifications.OnDelivered(s.onNotificationDelivered)
	return s
}

func (s *Service) Assign(ctx context.Context, req domain.AssignFeesRequest) (domain.AssignResult, error) {
	if err := guard.EnsureAssignableAmount(req.Amount); err != nil {
		return domain.AssignResult{}, err
	}
	studentIDs, err := parseIDs(req.StudentIDs)
	if err != nil {
		return domain.AssignResult{}, err
	}
	period, err := s.loadPeriod(ctx, req.BillingPeriodID)
	if err != nil {
		return domain.AssignResult{}, err
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("billing_period_id", period.ID.String()))
	settings := s.settings.Get()
	now := s.clock.Now()

	result := domain.AssignResult{Created: []domain.FeeRecord{}, Skipped: []snowflake.ID{}}
	var outbox []notificationdomain.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.ExistingStudentIDs(ctx, tx, period.ID)
		if err != nil {
			return err
		}
		assigned := make(map[snowflake.ID]struct{}, len(existing))
		for _, id := range existing {
			assigned[id] = struct{}{}
		}

		fresh := make([]snowflake.ID, 0, len(studentIDs))
		for _, id := range studentIDs {
			if _, ok := assigned[id]; ok {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			fresh = append(fresh, id)
		}
		if len(fresh) == 0 {
			return nil
		}

		known, err := s.repo.CountStudents(ctx, tx, fresh)
		if err != nil {
			return err
		}
		if known != int64(len(fresh)) {
			return domain.ErrStudentNotFound
		}

		fees := make([]*domain.FeeRecord, 0, len(fresh))
		ids := make([]snowflake.ID, 0, len(fresh))
		for _, studentID := range fresh {
			fee := &domain.FeeRecord{
				ID:              s.genID.Generate(),
				StudentID:       studentID,
				BillingPeriodID: period.ID,
				Amount:          req.Amount,
				Status:          domain.StatusPending,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			fees = append(fees, fee)
			ids = append(ids, fee.ID)
		}
		if err := s.repo.InsertBatch(ctx, tx, fees); err != nil {
			switch {
			case db.IsDuplicateKeyErr(err):
				return domain.ErrDuplicateAssignment
			case db.IsForeignKeyErr(err):
				return domain.ErrStudentNotFound
			}
			return err
		}

		details, err := s.repo.DetailsByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, detail := range details {
			n, ok, err := s.enqueue(ctx, tx, log, settings, *detail, notificationdomain.TypeFeeAssigned)
			if err != nil {
				return err
			}
			if ok {
				outbox = append(outbox, n)
			}
		}
		for _, fee := range fees {
			result.Created = append(result.Created, *fee)
		}
		return nil
	})
	if err != nil {
		return domain.AssignResult{}, err
	}

	s.metrics.RecordFeesAssigned(ctx, len(result.Created))
	log.Info("fees assigned",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)

	result.NotificationsSent, result.NotificationFailures = s.deliverAll(ctx, outbox)
	return result, nil
}

func (s *Service) AssignableStudents(ctx context.Context, billingPeriodID string) ([]studentdomain.Student, error) {
	period, err := s.loadPeriod(ctx, billingPeriodID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.AssignableStudents(ctx, s.db, period.ID)
	if err != nil {
		return nil, err
	}
	out := make([]studentdomain.Student, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

// SweepOverdue holds a Redis lock when one is configured. A lock error is logged and the
// sweep proceeds, because the transaction alone keeps concurrent sweeps correct.
func (s *Service) SweepOverdue(ctx context.Context) (domain.SweepResult, error) {
	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, sweepLockJob, sweepLockTTL)
		switch {
		case errors.Is(err, ratelimit.ErrLockHeld):
			return domain.SweepResult{}, domain.ErrSweepInProgress
		case err != nil:
			s.log.Warn("overdue sweep lock unavailable, sweeping without it", zap.Error(err))
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					s.log.Warn("release overdue sweep lock", zap.String("key", lease.Key()), zap.Error(err))
				}
			}()
		}
	}
	return s.sweep(ctx)
}

func (s *Service) sweep(ctx context.Context) (domain.SweepResult, error) {
	log := logger.WithContext(ctx, s.log)
	settings := s.settings.Get()
	policy := settings.Notifications
	now := s.clock.Now()
	today := clock.Date(now, settings.Location())

	var result domain.SweepResult
	var outbox []notificationdomain.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flagged, err := s.repo.MarkOverdue(ctx, tx, today, now)
		if err != nil {
			return err
		}
		result.NewlyOverdue = int(flagged)

		fees, err := s.repo.ListUnreminded(ctx, tx)
		if err != nil {
			return err
		}
		for _, fee := range fees {
			if fee == nil {
				continue
			}
			latest, err := s.notifications.LatestForFee(ctx, tx, fee.ID, notificationdomain.TypePaymentReminder)
			if err != nil {
				return err
			}

			switch {
			case latest == nil || latest.Exhausted(policy.MaxAttempts):
				n, ok, err := s.enqueue(ctx, tx, log, settings, *fee, notificationdomain.TypePaymentReminder)
				if err != nil {
					return err
				}
				if !ok {
					result.ReminderFailures++
					continue
				}
				outbox = append(outbox, n)
			case latest.Status == notificationdomain.StatusSent:
				// delivered earlier but the flag write was lost
				if err := s.repo.SetReminderSent(ctx, tx, fee.ID, now); err != nil {
					return err
				}
			case latest.Deliverable(now, 0, policy.MaxAttempts):
				outbox = append(outbox, *latest)
			}
		}

		found, err := s.repo.CountByStatus(ctx, tx, domain.StatusOverdue)
		if err != nil {
			return err
		}
		result.OverdueFound = int(found)
		return nil
	})
	if err != nil {
		return domain.SweepResult{}, err
	}

	s.metrics.RecordFeesOverdue(ctx, result.NewlyOverdue)

	sent, failed := s.deliverAll(ctx, outbox)
	result.RemindersSent = sent
	result.ReminderFailures += failed

	log.Info("overdue sweep finished",
		zap.Int("overdue_found", result.OverdueFound),
		zap.Int("newly_overdue", result.NewlyOverdue),
		zap.Int("reminders_sent", result.RemindersSent),
		zap.Int("reminder_failures", result.ReminderFailures),
	)
	return result, nil
}

func (s *Service) List(ctx context.Context, req domain.ListFeeRequest) (domain.ListFeeResponse, error) {
	var filter domain.ListFeeFilter
	if v := strings.TrimSpace(req.BillingPeriodID); v != "" {
		id, err := parseID(v)
		if err != nil {
			return domain.ListFeeResponse{}, domain.ErrInvalidPeriod
		}
		filter.BillingPeriodID = &id
	}
	if v := strings.TrimSpace(req.StudentID); v != "" {
		id, err := parseID(v)
		if err != nil {
			return domain.ListFeeResponse{}, domain.ErrInvalidStudentIDs
		}
		filter.StudentID = &id
	}
	if v := strings.TrimSpace(req.Status); v != "" {
		filter.Status = domain.Status(strings.ToLower(v))
		if !filter.Status.Valid() {
			return domain.ListFeeResponse{}, domain.ErrInvalidStatus
		}
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.ListDetails(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListFeeResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(d *domain.FeeDetail) string {
		return pagination.IDCursor(int64(d.ID))
	})

	return domain.ListFeeResponse{PageInfo: pageInfo, Fees: s.withEffectiveStatus(items)}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.FeeDetail, error) {
	feeID, err := parseID(id)
	if err != nil {
		return domain.FeeDetail{}, err
	}
	item, err := s.repo.FindDetail(ctx, s.db, feeID)
	if err != nil {
		return domain.FeeDetail{}, err
	}
	if item == nil {
		return domain.FeeDetail{}, domain.ErrNotFound
	}
	return s.withEffectiveStatus([]*domain.FeeDetail{item})[0], nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	feeID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fee, err := s.repo.FindByID(ctx, tx, feeID)
		if err != nil {
			return err
		}
		if fee == nil {
			return domain.ErrNotFound
		}
		if err := guard.EnsureCanDelete(fee.Status); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, feeID)
	})
}

func (s *Service) StudentFees(ctx context.Context, studentID string) ([]domain.FeeDetail, error) {
	id, err := parseID(studentID)
	if err != nil {
		return nil, err
	}
	known, err := s.repo.CountStudents(ctx, s.db, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	if known == 0 {
		return nil, domain.ErrStudentNotFound
	}
	items, err := s.repo.StudentDetails(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return s.withEffectiveStatus(items), nil
}

// enqueue renders and writes an outbox row in tx. Rows that cannot be rendered or addressed
// are logged and skipped (ok=false); store errors abort the caller's transaction.
func (s *Service) enqueue(ctx context.Context, tx *gorm.DB, log *zap.Logger, settings config.FeeSettings, fee domain.FeeDetail, t notificationdomain.Type) (notificationdomain.Notification, bool, error) {
	data := message.FeeData(settings, fee.StudentName, fee.Amount, fee.PeriodLabel, fee.DueDate)
	text, err := message.Render(t, settings.Templates, data)
	if err != nil {
		log.Error("render notification", zap.String("fee_record_id", fee.ID.String()), zap.String("type", string(t)), zap.Error(err))
		return notificationdomain.Notification{}, false, nil
	}

	feeID := fee.ID
	n, err := s.notifications.Enqueue(ctx, tx, notificationdomain.DispatchRequest{
		StudentID:   fee.StudentID,
		FeeRecordID: &feeID,
		Type:        t,
		Message:     text,
		Phone:       fee.ParentPhone,
	})
	switch {
	case err == nil:
		return n, true, nil
	case isRejectedDispatch(err):
		log.Warn("notification skipped", zap.String("fee_record_id", fee.ID.String()), zap.String("type", string(t)), zap.Error(err))
		return notificationdomain.Notification{}, false, nil
	default:
		return notificationdomain.Notification{}, false, err
	}
}

// deliverAll attempts every row concurrently and waits for all of them.
func (s *Service) deliverAll(ctx context.Context, items []notificationdomain.Notification) (int, int) {
	if len(items) == 0 {
		return 0, 0
	}
	limit := s.settings.Get().Notifications.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		n := item
		g.Go(func() error {
			switch err := s.notifications.Deliver(ctx, n); {
			case err == nil:
				sent.Add(1)
			case errors.Is(err, notificationdomain.ErrDeliveryInProgress):
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load()), int(failed.Load())
}

func (s *Service) onNotificationDelivered(ctx context.Context, n notificationdomain.Notification) error {
	if n.FeeRecordID == nil {
		return nil
	}
	switch n.Type {
	case notificationdomain.TypeFeeAssigned:
		return s.repo.SetNotificationSent(ctx, s.db, *n.FeeRecordID, s.clock.Now())
	case notificationdomain.TypePaymentReminder:
		return s.repo.SetReminderSent(ctx, s.db, *n.FeeRecordID, s.clock.Now())
	default:
		return nil
	}
}

func (s *Service) withEffectiveStatus(items []*domain.FeeDetail) []domain.FeeDetail {
	settings := s.settings.Get()
	today := clock.Date(s.clock.Now(), settings.Location())
	out := make([]domain.FeeDetail, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		detail := *item
		detail.EffectiveStatus = guard.EffectiveStatus(detail.Status, detail.DueDate, today)
		out = append(out, detail)
	}
	return out
}

func (s *Service) loadPeriod(ctx context.Context, id string) (billingperioddomain.BillingPeriod, error) {
	period, err := s.periods.Get(ctx, id)
	switch {
	case errors.Is(err, billingperioddomain.ErrInvalidID):
		return billingperioddomain.BillingPeriod{}, domain.ErrInvalidPeriod
	case errors.Is(err, billingperioddomain.ErrNotFound):
		return billingperioddomain.BillingPeriod{}, domain.ErrPeriodNotFound
	case err != nil:
		return billingperioddomain.BillingPeriod{}, err
	}
	return period, nil
}

func isRejectedDispatch(err error) bool {
	return errors.Is(err, notificationdomain.ErrMissingPhone) ||
		errors.Is(err, notificationdomain.ErrEmptyMessage) ||
		errors.Is(err, notificationdomain.ErrInvalidStudent) ||
		errors.Is(err, notificationdomain.ErrInvalidType)
}

func parseIDs(values []string) ([]snowflake.ID, error) {
	if len(values) == 0 {
		return nil, domain.ErrInvalidStudentIDs
	}
	seen := make(map[snowflake.ID]struct{}, len(values))
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		id, err := parseID(value)
		if err != nil {
			return nil, domain.ErrInvalidStudentIDs
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
