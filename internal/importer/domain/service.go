package domain

import (
	"context"
	"errors"
	"io"

	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Field names a student attribute a spreadsheet column can be mapped to.
type Field string

const (
	FieldName           Field = "name"
	FieldClassLabel     Field = "class_label"
	FieldEnrollmentYear Field = "enrollment_year"
	FieldParentName     Field = "parent_name"
	FieldParentPhone    Field = "parent_phone"
	FieldParentEmail    Field = "parent_email"
	FieldLoginID        Field = "login_id"
)

func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldClassLabel, FieldEnrollmentYear, FieldParentName,
		FieldParentPhone, FieldParentEmail, FieldLoginID:
		return true
	}
	return false
}

const MaxRows = 5000

type Request struct {
	Filename string
	// Format overrides detection from the filename extension.
	Format  Format
	Content io.Reader
	// Mapping maps a column header to a Field. Headers missing from the mapping
	// fall back to the built-in aliases.
	Mapping map[string]string
}

// Row is one spreadsheet line after column mapping. Line is the 1-based line
// number in the source file, the header being line 1.
type Row struct {
	Line           int    `json:"row"`
	Name           string `json:"name" validate:"notblank"`
	ClassLabel     string `json:"class_label" validate:"class"`
	EnrollmentYear int    `json:"enrollment_year" validate:"gte=2000,lte=2100"`
	ParentName     string `json:"parent_name,omitempty"`
	ParentPhone    string `json:"parent_phone" validate:"notblank"`
	ParentEmail    string `json:"parent_email,omitempty" validate:"omitempty,email"`
	LoginID        string `json:"login_id,omitempty"`
}

type InvalidRow struct {
	Row    int               `json:"row"`
	Errors []string          `json:"errors"`
	Values map[string]string `json:"values,omitempty"`
}

type Preview struct {
	Valid   []Row        `json:"valid"`
	Invalid []InvalidRow `json:"invalid"`
}

type CommitResult struct {
	Created []studentdomain.Student `json:"created"`
	Invalid []InvalidRow            `json:"invalid"`
}

type Service interface {
	Preview(context.Context, Request) (Preview, error)
	// Commit inserts the valid rows in one transaction. Invalid rows are reported
	// back and never inserted.
	Commit(context.Context, Request) (CommitResult, error)
}

var (
	ErrUnsupportedFormat = errors.New("unsupported_format")
	ErrEmptyFile         = errors.New("empty_file")
	ErrInvalidMapping    = errors.New("invalid_mapping")
	ErrMissingColumns    = errors.New("missing_required_columns")
	ErrTooManyRows       = errors.New("too_many_rows")
	ErrNoValidRows       = errors.New("no_valid_rows")
)
