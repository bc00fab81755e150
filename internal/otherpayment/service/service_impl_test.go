package service

import (
	"context"
	"testing"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/testutil/dbtest"
	pkgdb "github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, []snowflake.ID) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}).(*Service)

	var students []snowflake.ID
	for _, name := range []string{"aisha", "yusuf"} {
		id := node.Generate()
		require.NoError(t, db.Exec(
			`INSERT INTO students (id, name, class_label, enrollment_year, parent_phone, login_id, password_hash) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, name, "UKG", 2024, "+9607771234", name, "x",
		).Error)
		students = append(students, id)
	}
	return svc, db, students
}

func TestAssignAllowsDuplicateNames(t *testing.T) {
	svc, db, students := newTestService(t)
	ctx := context.Background()
	req := domain.AssignOtherPaymentRequest{
		StudentIDs: []string{students[0].String(), students[1].String()},
		Name:       "Sports day kit",
		Amount:     decimal.RequireFromString("120.50"),
	}

	first, err := svc.Assign(ctx, req)
	require.NoError(t, err)
	require.Len(t, first, 2)
	_, err = svc.Assign(ctx, req)
	require.NoError(t, err)

	assert.EqualValues(t, 4, dbtest.Count(t, db, `SELECT COUNT(*) FROM other_payments WHERE name = ?`, "Sports day kit"))
}

func TestInsertForDeletedStudentIsForeignKeyError(t *testing.T) {
	svc, db, _ := newTestService(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := svc.repo.InsertBatch(context.Background(), db, []*domain.OtherPayment{{
		ID:        svc.genID.Generate(),
		StudentID: svc.genID.Generate(),
		Name:      "Field trip",
		Amount:    decimal.NewFromInt(50),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}})
	require.Error(t, err)
	assert.True(t, pkgdb.IsForeignKeyErr(err), err.Error())
	assert.False(t, pkgdb.IsDuplicateKeyErr(err))
}

func TestAssignValidation(t *testing.T) {
	svc, db, students := newTestService(t)
	ctx := context.Background()

	_, err := svc.Assign(ctx, domain.AssignOtherPaymentRequest{StudentIDs: []string{students[0].String()}, Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Assign(ctx, domain.AssignOtherPaymentRequest{StudentIDs: []string{students[0].String()}, Name: "Trip", Amount: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Assign(ctx, domain.AssignOtherPaymentRequest{StudentIDs: []string{students[0].String(), "12345"}, Name: "Trip", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
	assert.Zero(t, dbtest.Count(t, db, `SELECT COUNT(*) FROM other_payments`))
}

func TestSettleOnceThenLocked(t *testing.T) {
	svc, _, students := newTestService(t)
	ctx := context.Background()
	items, err := svc.Assign(ctx, domain.AssignOtherPaymentRequest{
		StudentIDs: []string{students[0].String()},
		Name:       "Books",
		Amount:     decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	id := items[0].ID.String()

	paid, err := svc.Settle(ctx, id, "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.TransactionID)
	assert.Equal(t, "TXN-1", *paid.TransactionID)

	_, err = svc.Settle(ctx, id, "TXN-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	assert.ErrorIs(t, svc.Delete(ctx, id), domain.ErrPaidLocked)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", *got.TransactionID)
}

func TestListFiltersByStudentAndStatus(t *testing.T) {
	svc, _, students := newTestService(t)
	ctx := context.Background()
	_, err := svc.Assign(ctx, domain.AssignOtherPaymentRequest{
		StudentIDs: []string{students[0].String(), students[1].String()},
		Name:       "Uniform",
		Amount:     decimal.NewFromInt(80),
	})
	require.NoError(t, err)

	res, err := svc.List(ctx, domain.ListOtherPaymentRequest{StudentID: students[1].String(), Status: "pending"})
	require.NoError(t, err)
	require.Len(t, res.OtherPayments, 1)
	assert.Equal(t, students[1], res.OtherPayments[0].StudentID)

	_, err = svc.List(ctx, domain.ListOtherPaymentRequest{Status: "overdue"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
