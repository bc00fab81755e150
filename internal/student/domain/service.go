package domain

import (
	"context"
	"errors"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
)

type CreateStudentRequest struct {
	Name           string  `json:"name"`
	ClassLabel     string  `json:"class_label"`
	EnrollmentYear int     `json:"enrollment_year"`
	ParentName     string  `json:"parent_name"`
	ParentPhone    string  `json:"parent_phone"`
	ParentEmail    *string `json:"parent_email"`
	LoginID        string  `json:"login_id"`
	Password       string  `json:"password"`
}

type UpdateStudentRequest struct {
	Name           *string `json:"name"`
	ClassLabel     *string `json:"class_label"`
	EnrollmentYear *int    `json:"enrollment_year"`
	ParentName     *string `json:"parent_name"`
	ParentPhone    *string `json:"parent_phone"`
	ParentEmail    *string `json:"parent_email"`
}

type ListStudentRequest struct {
	PageToken  string
	PageSize   int
	ClassLabel string
	Name       string
}

type ListStudentFilter struct {
	ClassLabel string
	Name       string
}

type ListStudentResponse struct {
	pagination.PageInfo
	Students []Student `json:"students"`
}

type Service interface {
	Create(context.Context, CreateStudentRequest) (Student, error)
	// CreateBatch inserts every student in one transaction or none of them.
	CreateBatch(context.Context, []CreateStudentRequest) ([]Student, error)
	List(context.Context, ListStudentRequest) (ListStudentResponse, error)
	Get(ctx context.Context, id string) (Student, error)
	Update(ctx context.Context, id string, req UpdateStudentRequest) (Student, error)
	ResetPassword(ctx context.Context, id string, password string) error
	Delete(ctx context.Context, id string) error
}

const (
	MinPasswordLength = 6
	MinEnrollmentYear = 2000
	MaxEnrollmentYear = 2100
)

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidClass          = errors.New("invalid_class")
	ErrInvalidEnrollmentYear = errors.New("invalid_enrollment_year")
	ErrInvalidParentPhone    = errors.New("invalid_parent_phone")
	ErrInvalidPassword       = errors.New("invalid_password")
	ErrDuplicateLoginID      = errors.New("login_id_taken")
	ErrNotFound              = errors.New("not_found")
)
