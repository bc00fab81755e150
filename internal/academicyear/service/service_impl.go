package service

import (
	"context"
	"strings"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/domain"
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
		log:   p.Log.Named("academicyear.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAcademicYearRequest) (domain.AcademicYear, error) {
	if req.Year < domain.MinYear || req.Year > domain.MaxYear {
		return domain.AcademicYear{}, domain.ErrInvalidYear
	}

	now := time.Now().UTC()
	year := domain.AcademicYear{
		ID:        s.genID.Generate(),
		Year:      req.Year,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &year); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateYear
			}
			return err
		}
		if req.IsActive {
			if _, err := s.repo.Activate(ctx, tx, year.ID); err != nil {
				return err
			}
			year.IsActive = true
		}
		return nil
	})
	if err != nil {
		return domain.AcademicYear{}, err
	}

	s.log.Info("academic year created", zap.Int("year", year.Year), zap.Bool("active", year.IsActive))
	return year, nil
}

func (s *Service) List(ctx context.Context) ([]domain.AcademicYear, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	years := make([]domain.AcademicYear, 0, len(items))
	for _, item := range items {
		if item != nil {
			years = append(years, *item)
		}
	}
	return years, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.AcademicYear, error) {
	yearID, err := parseID(id)
	if err != nil {
		return domain.AcademicYear{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, yearID)
	if err != nil {
		return domain.AcademicYear{}, err
	}
	if item == nil {
		return domain.AcademicYear{}, domain.ErrNotFound
	}
	return *item, nil
}

// Activate marks one year active and clears the flag everywhere else in the same transaction.
func (s *Service) Activate(ctx context.Context, id string) (domain.AcademicYear, error) {
	yearID, err := parseID(id)
	if err != nil {
		return domain.AcademicYear{}, err
	}

	var year domain.AcademicYear
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Activate(ctx, tx, yearID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		item, err := s.repo.FindByID(ctx, tx, yearID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		year = *item
		return nil
	})
	if err != nil {
		return domain.AcademicYear{}, err
	}
	return year, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	yearID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, yearID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		periods, err := s.repo.CountPeriods(ctx, tx, yearID)
		if err != nil {
			return err
		}
		if periods > 0 {
			return domain.ErrHasPeriods
		}
		if err := s.repo.Delete(ctx, tx, yearID); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrHasPeriods
			}
			return err
		}
		return nil
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
