package domain

import (
	"context"
	"errors"
)

type CreateAcademicYearRequest struct {
	Year     int  `json:"year"`
	IsActive bool `json:"is_active"`
}

type Service interface {
	Create(context.Context, CreateAcademicYearRequest) (AcademicYear, error)
	List(context.Context) ([]AcademicYear, error)
	Get(ctx context.Context, id string) (AcademicYear, error)
	Activate(ctx context.Context, id string) (AcademicYear, error)
	Delete(ctx context.Context, id string) error
}

const (
	MinYear = 2000
	MaxYear = 2100
)

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidYear   = errors.New("invalid_year")
	ErrDuplicateYear = errors.New("academic_year_exists")
	ErrHasPeriods    = errors.New("academic_year_has_periods")
	ErrNotFound      = errors.New("not_found")
)
