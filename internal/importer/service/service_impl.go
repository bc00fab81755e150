package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Students studentdomain.Service
	Settings *config.FeeSettingsHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	students studentdomain.Service
	settings *config.FeeSettingsHolder
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("importer.service"),
		students: p.Students,
		settings: p.Settings,
		metrics:  p.Metrics,
		validate: newValidator(p.Settings),
	}
}

func (s *Service) Preview(ctx context.Context, req domain.Request) (domain.Preview, error) {
	preview, err := s.partition(req)
	if err != nil {
		return domain.Preview{}, err
	}
	s.metrics.RecordImportRows(ctx, "valid", len(preview.Valid))
	s.metrics.RecordImportRows(ctx, "invalid", len(preview.Invalid))
	s.log.Info("import previewed",
		zap.String("filename", req.Filename),
		zap.Int("valid", len(preview.Valid)),
		zap.Int("invalid", len(preview.Invalid)),
	)
	return preview, nil
}

func (s *Service) Commit(ctx context.Context, req domain.Request) (domain.CommitResult, error) {
	preview, err := s.partition(req)
	if err != nil {
		return domain.CommitResult{}, err
	}
	if len(preview.Valid) == 0 {
		return domain.CommitResult{}, domain.ErrNoValidRows
	}

	reqs := make([]studentdomain.CreateStudentRequest, 0, len(preview.Valid))
	for _, row := range preview.Valid {
		create := studentdomain.CreateStudentRequest{
			Name:           row.Name,
			ClassLabel:     row.ClassLabel,
			EnrollmentYear: row.EnrollmentYear,
			ParentName:     row.ParentName,
			ParentPhone:    row.ParentPhone,
			LoginID:        row.LoginID,
		}
		if row.ParentEmail != "" {
			email := row.ParentEmail
			create.ParentEmail = &email
		}
		reqs = append(reqs, create)
	}

	created, err := s.students.CreateBatch(ctx, reqs)
	if err != nil {
		s.log.Warn("import commit failed", zap.String("filename", req.Filename), zap.Error(err))
		return domain.CommitResult{}, err
	}

	s.metrics.RecordImportRows(ctx, "created", len(created))
	s.metrics.RecordImportRows(ctx, "invalid", len(preview.Invalid))
	s.log.Info("import committed",
		zap.String("filename", req.Filename),
		zap.Int("created", len(created)),
		zap.Int("invalid", len(preview.Invalid)),
	)
	return domain.CommitResult{Created: created, Invalid: preview.Invalid}, nil
}

// partition parses the upload and splits its lines into valid and invalid rows.
// The first non-blank line is the header; later blank lines are skipped.
func (s *Service) partition(req domain.Request) (domain.Preview, error) {
	format, err := detectFormat(req)
	if err != nil {
		return domain.Preview{}, err
	}
	table, err := readTable(format, req.Content)
	if err != nil {
		return domain.Preview{}, err
	}
	header := 0
	for header < len(table) && isBlank(table[header]) {
		header++
	}
	if header == len(table) {
		return domain.Preview{}, domain.ErrEmptyFile
	}
	if len(table)-header-1 > domain.MaxRows {
		return domain.Preview{}, domain.ErrTooManyRows
	}

	columns, err := resolveColumns(table[header], req.Mapping)
	if err != nil {
		return domain.Preview{}, err
	}

	settings := s.settings.Get()
	preview := domain.Preview{Valid: []domain.Row{}, Invalid: []domain.InvalidRow{}}
	loginIDs := make(map[string]int)
	for i := header + 1; i < len(table); i++ {
		record := table[i]
		if isBlank(record) {
			continue
		}
		row, values := toRow(i+1, record, columns)
		errs := rowErrors(s.validate, row)

		if row.LoginID != "" {
			key := strings.ToLower(row.LoginID)
			if first, ok := loginIDs[key]; ok {
				errs = append(errs, "Login ID duplicates row "+strconv.Itoa(first))
			} else {
				loginIDs[key] = row.Line
			}
		}

		if len(errs) > 0 {
			preview.Invalid = append(preview.Invalid, domain.InvalidRow{Row: row.Line, Errors: errs, Values: values})
			continue
		}
		row.ClassLabel = settings.CanonicalClass(row.ClassLabel)
		preview.Valid = append(preview.Valid, row)
	}
	return preview, nil
}
