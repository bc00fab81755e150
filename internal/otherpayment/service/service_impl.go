package service

import (
	"context"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 120

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("otherpayment.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Assign(ctx context.Context, req domain.AssignOtherPaymentRequest) ([]domain.OtherPayment, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	if !validAmount(req.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	if len(req.StudentIDs) == 0 {
		return nil, domain.ErrInvalidStudentIDs
	}
	ids := make([]snowflake.ID, 0, len(req.StudentIDs))
	seen := make(map[snowflake.ID]struct{}, len(req.StudentIDs))
	for _, raw := range req.StudentIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidStudentIDs
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	now := s.clock.Now()
	items := make([]*domain.OtherPayment, 0, len(ids))
	for _, id := range ids {
		items = append(items, &domain.OtherPayment{
			ID:        s.genID.Generate(),
			StudentID: id,
			Name:      name,
			Amount:    req.Amount,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		known, err := s.repo.CountStudents(ctx, tx, ids)
		if err != nil {
			return err
		}
		if known != int64(len(ids)) {
			return domain.ErrStudentNotFound
		}
		if err := s.repo.InsertBatch(ctx, tx, items); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrStudentNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("other payments assigned", zap.String("name", name), zap.Int("count", len(items)))
	out := make([]domain.OtherPayment, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOtherPaymentRequest) (domain.ListOtherPaymentResponse, error) {
	var filter domain.ListOtherPaymentFilter
	if v := strings.TrimSpace(req.StudentID); v != "" {
		id, err := parseID(v)
		if err != nil {
			return domain.ListOtherPaymentResponse{}, domain.ErrInvalidStudentIDs
		}
		filter.StudentID = &id
	}
	if v := strings.TrimSpace(req.Status); v != "" {
		filter.Status = domain.Status(strings.ToLower(v))
		if filter.Status != domain.StatusPending && filter.Status != domain.StatusPaid {
			return domain.ListOtherPaymentResponse{}, domain.ErrInvalidStatus
		}
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListOtherPaymentResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(p *domain.OtherPayment) string {
		return pagination.IDCursor(int64(p.ID))
	})

	out := make([]domain.OtherPayment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return domain.ListOtherPaymentResponse{PageInfo: pageInfo, OtherPayments: out}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.OtherPayment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.OtherPayment{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.OtherPayment{}, err
	}
	if item == nil {
		return domain.OtherPayment{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Settle(ctx context.Context, id string, transactionID string) (domain.OtherPayment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.OtherPayment{}, err
	}
	var settled domain.OtherPayment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		now := s.clock.Now()
		ok, err := s.repo.MarkPaid(ctx, tx, paymentID, now, transactionID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyPaid
		}
		item.Status = domain.StatusPaid
		item.PaymentDate = &now
		item.TransactionID = &transactionID
		item.UpdatedAt = now
		settled = *item
		return nil
	})
	if err != nil {
		return domain.OtherPayment{}, err
	}
	return settled, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	paymentID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if item.Status == domain.StatusPaid {
			return domain.ErrPaidLocked
		}
		return s.repo.Delete(ctx, tx, paymentID)
	})
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Round(2).Equal(amount)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
