package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Settings *config.FeeSettingsHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	settings *config.FeeSettingsHolder
	hashCost int
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("student.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		settings: p.Settings,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStudentRequest) (domain.Student, error) {
	student, err := s.build(req)
	if err != nil {
		return domain.Student{}, err
	}
	if err := s.insert(ctx, s.db, &student); err != nil {
		return domain.Student{}, err
	}
	s.log.Info("student created", zap.String("student_id", student.ID.String()))
	return student, nil
}

func (s *Service) CreateBatch(ctx context.Context, reqs []domain.CreateStudentRequest) ([]domain.Student, error) {
	students := make([]domain.Student, 0, len(reqs))
	for _, req := range reqs {
		student, err := s.build(req)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range students {
			if err := s.insert(ctx, tx, &students[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("students created", zap.Int("count", len(students)))
	return students, nil
}

func (s *Service) List(ctx context.Context, req domain.ListStudentRequest) (domain.ListStudentResponse, error) {
	filter := domain.ListStudentFilter{
		Name: strings.TrimSpace(req.Name),
	}
	if label := strings.TrimSpace(req.ClassLabel); label != "" {
		filter.ClassLabel = s.settings.Get().CanonicalClass(label)
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListStudentResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(student *domain.Student) string {
		return pagination.IDCursor(int64(student.ID))
	})

	students := make([]domain.Student, 0, len(items))
	for _, item := range items {
		if item != nil {
			students = append(students, *item)
		}
	}
	return domain.ListStudentResponse{PageInfo: pageInfo, Students: students}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Student, error) {
	studentID, err := parseID(id)
	if err != nil {
		return domain.Student{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, studentID)
	if err != nil {
		return domain.Student{}, err
	}
	if item == nil {
		return domain.Student{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateStudentRequest) (domain.Student, error) {
	studentID, err := parseID(id)
	if err != nil {
		return domain.Student{}, err
	}

	var updated domain.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.ClassLabel != nil {
			item.ClassLabel = *req.ClassLabel
		}
		if req.EnrollmentYear != nil {
			item.EnrollmentYear = *req.EnrollmentYear
		}
		if req.ParentName != nil {
			item.ParentName = strings.TrimSpace(*req.ParentName)
		}
		if req.ParentPhone != nil {
			item.ParentPhone = normalizePhone(*req.ParentPhone)
		}
		if req.ParentEmail != nil {
			item.ParentEmail = optionalString(*req.ParentEmail)
		}
		if err := s.validate(item); err != nil {
			return err
		}

		item.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return domain.Student{}, err
	}
	return updated, nil
}

// ResetPassword replaces the stored hash. The plaintext is never persisted or echoed back.
func (s *Service) ResetPassword(ctx context.Context, id string, password string) error {
	studentID, err := parseID(id)
	if err != nil {
		return err
	}
	if len(password) < domain.MinPasswordLength {
		return domain.ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return err
	}
	affected, err := s.repo.UpdatePassword(ctx, s.db, studentID, string(hash))
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("student password reset", zap.String("student_id", studentID.String()))
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	studentID, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, s.db, studentID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) build(req domain.CreateStudentRequest) (domain.Student, error) {
	now := time.Now().UTC()
	student := domain.Student{
		ID:             s.genID.Generate(),
		Name:           strings.TrimSpace(req.Name),
		ClassLabel:     req.ClassLabel,
		EnrollmentYear: req.EnrollmentYear,
		ParentName:     strings.TrimSpace(req.ParentName),
		ParentPhone:    normalizePhone(req.ParentPhone),
		LoginID:        strings.ToLower(strings.TrimSpace(req.LoginID)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.ParentEmail != nil {
		student.ParentEmail = optionalString(*req.ParentEmail)
	}
	if err := s.validate(&student); err != nil {
		return domain.Student{}, err
	}
	if student.LoginID == "" {
		student.LoginID = defaultLoginID(student.Name, student.ID)
	}

	password := req.Password
	if password == "" {
		generated, err := randomPassword()
		if err != nil {
			return domain.Student{}, err
		}
		password = generated
	} else if len(password) < domain.MinPasswordLength {
		return domain.Student{}, domain.ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.Student{}, err
	}
	student.PasswordHash = string(hash)
	return student, nil
}

func (s *Service) validate(student *domain.Student) error {
	settings := s.settings.Get()
	if student.Name == "" {
		return domain.ErrInvalidName
	}
	if !settings.IsValidClass(student.ClassLabel) {
		return domain.ErrInvalidClass
	}
	student.ClassLabel = settings.CanonicalClass(student.ClassLabel)
	if student.EnrollmentYear < domain.MinEnrollmentYear || student.EnrollmentYear > domain.MaxEnrollmentYear {
		return domain.ErrInvalidEnrollmentYear
	}
	if student.ParentPhone == "" {
		return domain.ErrInvalidParentPhone
	}
	return nil
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, student *domain.Student) error {
	if err := s.repo.Insert(ctx, tx, student); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateLoginID
		}
		return err
	}
	return nil
}

// defaultLoginID is the name slug plus the tail of the id, e.g. "aisha-ali-k3f9".
func defaultLoginID(name string, id snowflake.ID) string {
	suffix := id.Base36()
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	base := slug.Make(name)
	if base == "" {
		base = "student"
	}
	return base + "-" + suffix
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
