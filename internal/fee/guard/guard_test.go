package guard

import (
	"testing"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEnsureCanMarkOverdueIsStrict(t *testing.T) {
	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, EnsureCanMarkOverdue(domain.StatusPending, due, due), domain.ErrNotDueYet)
	assert.NoError(t, EnsureCanMarkOverdue(domain.StatusPending, due, due.AddDate(0, 0, 1)))
	assert.ErrorIs(t, EnsureCanMarkOverdue(domain.StatusPaid, due, due.AddDate(0, 1, 0)), domain.ErrNotPending)
	assert.ErrorIs(t, EnsureCanMarkOverdue(domain.StatusOverdue, due, due.AddDate(0, 1, 0)), domain.ErrNotPending)
}

func TestEnsureCanSettleAndDelete(t *testing.T) {
	assert.NoError(t, EnsureCanSettle(domain.StatusOverdue))
	assert.ErrorIs(t, EnsureCanSettle(domain.StatusPaid), domain.ErrAlreadyPaid)
	assert.NoError(t, EnsureCanDelete(domain.StatusPending))
	assert.ErrorIs(t, EnsureCanDelete(domain.StatusPaid), domain.ErrPaidFeeLocked)
}

func TestEnsureAssignableAmount(t *testing.T) {
	cases := map[string]bool{
		"1500":    true,
		"1500.50": true,
		"0.01":    true,
		"0":       false,
		"-10":     false,
		"12.345":  false,
	}
	for raw, ok := range cases {
		err := EnsureAssignableAmount(decimal.RequireFromString(raw))
		if ok {
			assert.NoError(t, err, raw)
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidAmount, raw)
		}
	}
}

func TestEffectiveStatus(t *testing.T) {
	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	today := due.AddDate(0, 0, 1)

	assert.Equal(t, domain.StatusOverdue, EffectiveStatus(domain.StatusPending, due, today))
	assert.Equal(t, domain.StatusPending, EffectiveStatus(domain.StatusPending, due, due))
	assert.Equal(t, domain.StatusPaid, EffectiveStatus(domain.StatusPaid, due, today))
}
