package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/providers/sms"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// claimLease bounds how long a crashed delivery keeps a row away from the outbox worker.
const claimLease = 5 * time.Minute

const maxErrorLength = 500

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Provider sms.Provider
	Clock    clock.Clock
	Settings *config.FeeSettingsHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	provider sms.Provider
	clock    clock.Clock
	settings *config.FeeSettingsHolder
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	listeners []domain.DeliveredListener
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("notification.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		provider: p.Provider,
		clock:    p.Clock,
		settings: p.Settings,
		metrics:  p.Metrics,
	}
}

func (s *Service) OnDelivered(listener domain.DeliveredListener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, req domain.DispatchRequest) (domain.Notification, error) {
	if req.StudentID == 0 {
		return domain.Notification{}, domain.ErrInvalidStudent
	}
	if !req.Type.Valid() {
		return domain.Notification{}, domain.ErrInvalidType
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.Notification{}, domain.ErrEmptyMessage
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Notification{}, domain.ErrMissingPhone
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	n := domain.Notification{
		ID:          s.genID.Generate(),
		StudentID:   req.StudentID,
		FeeRecordID: req.FeeRecordID,
		Type:        req.Type,
		Message:     req.Message,
		Phone:       phone,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, tx, &n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *Service) Dispatch(ctx context.Context, req domain.DispatchRequest) (domain.Notification, error) {
	n, err := s.Enqueue(ctx, s.db, req)
	if err != nil {
		return domain.Notification{}, err
	}
	deliverErr := s.Deliver(ctx, n)

	if latest, err := s.repo.FindByID(ctx, s.db, n.ID); err == nil && latest != nil {
		n = *latest
	}
	return n, deliverErr
}

// Deliver claims the row, sends it, then records sent or failed. A failed status write is
// logged and swallowed, leaving the row pending until its lease expires.
func (s *Service) Deliver(ctx context.Context, n domain.Notification) error {
	policy := s.settings.Get().Notifications
	log := logger.WithContext(ctx, s.log).With(
		zap.String("notification_id", n.ID.String()),
		zap.String("type", string(n.Type)),
	)

	if n.Status == domain.StatusSent || n.Exhausted(policy.MaxAttempts) {
		return domain.ErrNotDeliverable
	}

	now := s.clock.Now()
	claimed, err := s.repo.Claim(ctx, s.db, n.ID, n.Status, now, now.Add(claimLease))
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrDeliveryInProgress
	}

	sendErr := s.provider.Send(ctx, sms.Message{
		Phone:          n.Phone,
		Body:           n.Message,
		NotificationID: n.ID.String(),
	})
	if sendErr == nil {
		sentAt := s.clock.Now()
		if err := s.repo.MarkSent(ctx, s.db, n.ID, sentAt); err != nil {
			log.Error("notification sent but status update failed", zap.Error(err))
		}
		n.Status = domain.StatusSent
		n.SentAt = &sentAt
		n.NextAttemptAt = nil
		s.metrics.RecordNotification(ctx, string(n.Type), string(domain.StatusSent))
		s.notifyDelivered(ctx, log, n)
		return nil
	}

	attempts := n.Attempts + 1
	var next *time.Time
	if attempts < policy.MaxAttempts {
		at := now.Add(RetryDelay(policy, attempts))
		next = &at
	}
	if err := s.repo.MarkFailed(ctx, s.db, n.ID, truncate(sendErr.Error()), next, s.clock.Now()); err != nil {
		log.Error("notification failure status update failed", zap.Error(err), zap.NamedError("send_error", sendErr))
	}
	s.metrics.RecordNotification(ctx, string(n.Type), string(domain.StatusFailed))

	fields := []zap.Field{zap.Error(sendErr), zap.Int("attempts", attempts)}
	if next != nil {
		fields = append(fields, zap.Time("next_attempt_at", *next))
	} else {
		fields = append(fields, zap.Bool("exhausted", true))
	}
	log.Warn("notification delivery failed", fields...)
	return fmt.Errorf("deliver notification %s: %w", n.ID, sendErr)
}

// DeliverPending retries failed rows whose backoff elapsed and picks up stale pending rows.
func (s *Service) DeliverPending(ctx context.Context, limit int) (domain.DeliveryReport, error) {
	if limit <= 0 {
		limit = 50
	}
	policy := s.settings.Get().Notifications
	now := s.clock.Now()

	items, err := s.repo.ListDeliverable(ctx, s.db, now, now.Add(-policy.PendingGrace), policy.MaxAttempts, limit)
	if err != nil {
		return domain.DeliveryReport{}, err
	}

	var attempted, sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(policy))
	for _, item := range items {
		if item == nil {
			continue
		}
		n := *item
		g.Go(func() error {
			err := s.Deliver(gctx, n)
			switch {
			case errors.Is(err, domain.ErrDeliveryInProgress), errors.Is(err, domain.ErrNotDeliverable):
				return nil
			case err != nil:
				attempted.Add(1)
				failed.Add(1)
			default:
				attempted.Add(1)
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := domain.DeliveryReport{
		Attempted: int(attempted.Load()),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
	}
	if report.Attempted > 0 {
		s.log.Info("outbox pass finished",
			zap.Int("attempted", report.Attempted),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

func (s *Service) LatestForFee(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, t domain.Type) (*domain.Notification, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.LatestForFee(ctx, db, feeRecordID, t)
}

func (s *Service) List(ctx context.Context, req domain.ListNotificationRequest) (domain.ListNotificationResponse, error) {
	var filter domain.ListNotificationFilter
	if v := strings.TrimSpace(req.StudentID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil || id == 0 {
			return domain.ListNotificationResponse{}, domain.ErrInvalidStudent
		}
		filter.StudentID = &id
	}
	if v := strings.TrimSpace(req.Type); v != "" {
		filter.Type = domain.Type(v)
		if !filter.Type.Valid() {
			return domain.ListNotificationResponse{}, domain.ErrInvalidType
		}
	}
	if v := strings.TrimSpace(req.Status); v != "" {
		filter.Status = domain.Status(v)
		switch filter.Status {
		case domain.StatusPending, domain.StatusSent, domain.StatusFailed:
		default:
			return domain.ListNotificationResponse{}, domain.ErrInvalidStatus
		}
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(n *domain.Notification) string {
		return pagination.IDCursor(int64(n.ID))
	})

	out := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return domain.ListNotificationResponse{PageInfo: pageInfo, Notifications: out}, nil
}

func (s *Service) notifyDelivered(ctx context.Context, log *zap.Logger, n domain.Notification) {
	s.mu.RLock()
	listeners := append([]domain.DeliveredListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, listener := range listeners {
		if err := listener(ctx, n); err != nil {
			log.Error("delivery listener failed", zap.Error(err))
		}
	}
}

// RetryDelay is the exponential backoff before retry number attempt (1-based).
func RetryDelay(policy config.NotificationPolicy, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialBackoff
	b.MaxInterval = policy.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func concurrency(policy config.NotificationPolicy) int {
	if policy.Concurrency <= 0 {
		return 1
	}
	return policy.Concurrency
}

func truncate(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	return msg[:maxErrorLength]
}
