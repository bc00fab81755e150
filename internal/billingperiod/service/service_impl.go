package service

import (
	"context"
	"strings"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingperiod.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBillingPeriodRequest) (domain.BillingPeriod, error) {
	yearID, err := parseID(req.AcademicYearID)
	if err != nil {
		return domain.BillingPeriod{}, domain.ErrInvalidAcademicYear
	}
	if req.Month < 1 || req.Month > 12 {
		return domain.BillingPeriod{}, domain.ErrInvalidMonth
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return domain.BillingPeriod{}, err
	}

	calendarYear, ok, err := s.repo.AcademicYear(ctx, s.db, yearID)
	if err != nil {
		return domain.BillingPeriod{}, err
	}
	if !ok {
		return domain.BillingPeriod{}, domain.ErrInvalidAcademicYear
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = domain.DefaultLabel(req.Month, calendarYear)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := time.Now().UTC()
	period := domain.BillingPeriod{
		ID:             s.genID.Generate(),
		AcademicYearID: yearID,
		Month:          req.Month,
		Label:          label,
		DueDate:        dueDate,
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &period); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.BillingPeriod{}, domain.ErrDuplicatePeriod
		}
		return domain.BillingPeriod{}, err
	}

	s.log.Info("billing period created",
		zap.String("billing_period_id", period.ID.String()),
		zap.String("label", period.Label),
	)
	return period, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBillingPeriodRequest) ([]domain.BillingPeriod, error) {
	var yearID *snowflake.ID
	if strings.TrimSpace(req.AcademicYearID) != "" {
		id, err := parseID(req.AcademicYearID)
		if err != nil {
			return nil, domain.ErrInvalidAcademicYear
		}
		yearID = &id
	}

	items, err := s.repo.List(ctx, s.db, yearID)
	if err != nil {
		return nil, err
	}
	periods := make([]domain.BillingPeriod, 0, len(items))
	for _, item := range items {
		if item != nil {
			periods = append(periods, *item)
		}
	}
	return periods, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.BillingPeriod, error) {
	periodID, err := parseID(id)
	if err != nil {
		return domain.BillingPeriod{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, periodID)
	if err != nil {
		return domain.BillingPeriod{}, err
	}
	if item == nil {
		return domain.BillingPeriod{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateBillingPeriodRequest) (domain.BillingPeriod, error) {
	periodID, err := parseID(id)
	if err != nil {
		return domain.BillingPeriod{}, err
	}

	var updated domain.BillingPeriod
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if req.Label != nil {
			label := strings.TrimSpace(*req.Label)
			if label == "" {
				return domain.ErrInvalidLabel
			}
			item.Label = label
		}
		if req.DueDate != nil {
			dueDate, err := parseDueDate(*req.DueDate)
			if err != nil {
				return err
			}
			item.DueDate = dueDate
		}
		if req.IsActive != nil {
			item.IsActive = *req.IsActive
		}

		if err := s.repo.Update(ctx, tx, periodID, item.Label, item.DueDate, item.IsActive); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return domain.BillingPeriod{}, err
	}
	return updated, nil
}

// Delete refuses to remove a period that still carries fee records, paid ones reported first.
func (s *Service) Delete(ctx context.Context, id string) error {
	periodID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		paid, err := s.repo.CountFees(ctx, tx, periodID, "paid")
		if err != nil {
			return err
		}
		if paid > 0 {
			return domain.ErrHasPayments
		}
		total, err := s.repo.CountFees(ctx, tx, periodID, "")
		if err != nil {
			return err
		}
		if total > 0 {
			return domain.ErrHasFees
		}
		if err := s.repo.Delete(ctx, tx, periodID); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrHasFees
			}
			return err
		}
		return nil
	})
}

func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, domain.ErrInvalidDueDate
	}
	t, err := time.ParseInLocation(domain.DueDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDueDate
	}
	return t, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
