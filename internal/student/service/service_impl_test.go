package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/testutil/dbtest"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := New(Params{
		DB:       dbtest.Open(t),
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Settings: config.NewStaticFeeSettings(config.DefaultFeeSettings()),
	}).(*Service)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func validRequest(name string) domain.CreateStudentRequest {
	return domain.CreateStudentRequest{
		Name:           name,
		ClassLabel:     "lkg",
		EnrollmentYear: 2025,
		ParentName:     "Mariyam",
		ParentPhone:    "+960 777 1234",
		Password:       "secret-pass",
	}
}

func TestCreateHashesPasswordAndNeverSerializesIt(t *testing.T) {
	svc := newTestService(t)

	student, err := svc.Create(context.Background(), validRequest("Aisha Ali"))
	require.NoError(t, err)

	assert.Equal(t, "LKG", student.ClassLabel)
	assert.Equal(t, "+9607771234", student.ParentPhone)
	assert.Regexp(t, `^aisha-ali-[0-9a-z]{1,4}$`, student.LoginID)
	assert.NotEqual(t, "secret-pass", student.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("secret-pass")))

	raw, err := json.Marshal(student)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), student.PasswordHash)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	noPhone := validRequest("Aisha")
	noPhone.ParentPhone = "  "
	_, err := svc.Create(ctx, noPhone)
	assert.ErrorIs(t, err, domain.ErrInvalidParentPhone)

	badClass := validRequest("Aisha")
	badClass.ClassLabel = "Grade 1"
	_, err = svc.Create(ctx, badClass)
	assert.ErrorIs(t, err, domain.ErrInvalidClass)

	shortPass := validRequest("Aisha")
	shortPass.Password = "abc"
	_, err = svc.Create(ctx, shortPass)
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	badYear := validRequest("Aisha")
	badYear.EnrollmentYear = 25
	_, err = svc.Create(ctx, badYear)
	assert.ErrorIs(t, err, domain.ErrInvalidEnrollmentYear)
}

func TestCreateRejectsTakenLoginID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := validRequest("Aisha")
	req.LoginID = "aisha"
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateLoginID)
}

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := validRequest("Aisha")
	first.LoginID = "dup"
	second := validRequest("Hawwa")
	second.LoginID = "dup"

	_, err := svc.CreateBatch(ctx, []domain.CreateStudentRequest{first, second})
	assert.ErrorIs(t, err, domain.ErrDuplicateLoginID)
	assert.Zero(t, dbtest.Count(t, svc.db, `SELECT COUNT(1) FROM students`))

	second.LoginID = ""
	second.Password = ""
	created, err := svc.CreateBatch(ctx, []domain.CreateStudentRequest{first, second})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.NotEmpty(t, created[1].PasswordHash)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Aisha", "Ahmed", "Hawwa"} {
		_, err := svc.Create(ctx, validRequest(name))
		require.NoError(t, err)
	}
	nursery := validRequest("Ibrahim")
	nursery.ClassLabel = "Nursery"
	_, err := svc.Create(ctx, nursery)
	require.NoError(t, err)

	page, err := svc.List(ctx, domain.ListStudentRequest{ClassLabel: "LKG", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Students, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "Hawwa", page.Students[0].Name)

	next, err := svc.List(ctx, domain.ListStudentRequest{ClassLabel: "LKG", PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Students, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, "Aisha", next.Students[0].Name)

	byName, err := svc.List(ctx, domain.ListStudentRequest{Name: "AHM"})
	require.NoError(t, err)
	require.Len(t, byName.Students, 1)
	assert.Equal(t, "Ahmed", byName.Students[0].Name)
}

func TestUpdateResetAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	student, err := svc.Create(ctx, validRequest("Aisha"))
	require.NoError(t, err)

	class := "UKG"
	email := " parent@example.com "
	updated, err := svc.Update(ctx, student.ID.String(), domain.UpdateStudentRequest{ClassLabel: &class, ParentEmail: &email})
	require.NoError(t, err)
	assert.Equal(t, "UKG", updated.ClassLabel)
	require.NotNil(t, updated.ParentEmail)
	assert.Equal(t, "parent@example.com", *updated.ParentEmail)

	require.NoError(t, svc.ResetPassword(ctx, student.ID.String(), "new-secret"))
	reloaded, err := svc.Get(ctx, student.ID.String())
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("new-secret")))
	assert.ErrorIs(t, svc.ResetPassword(ctx, "424242", "new-secret"), domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, student.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, student.ID.String()), domain.ErrNotFound)
}
