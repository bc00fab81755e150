package guard

import (
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/shopspring/decimal"
)

// EnsureCanMarkOverdue allows pending -> overdue once the due date is strictly before today.
func EnsureCanMarkOverdue(status domain.Status, dueDate time.Time, today time.Time) error {
	if status != domain.StatusPending {
		return domain.ErrNotPending
	}
	if !dueDate.Before(today) {
		return domain.ErrNotDueYet
	}
	return nil
}

func EnsureCanSettle(status domain.Status) error {
	if status == domain.StatusPaid {
		return domain.ErrAlreadyPaid
	}
	return nil
}

func EnsureCanDelete(status domain.Status) error {
	if status == domain.StatusPaid {
		return domain.ErrPaidFeeLocked
	}
	return nil
}

// EnsureAssignableAmount accepts positive amounts with at most two decimal places.
func EnsureAssignableAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !amount.Round(2).Equal(amount) {
		return domain.ErrInvalidAmount
	}
	return nil
}

// EffectiveStatus reports overdue for a pending fee already past its due date, so views agree
// with the next sweep before it runs.
func EffectiveStatus(status domain.Status, dueDate time.Time, today time.Time) domain.Status {
	if EnsureCanMarkOverdue(status, dueDate, today) == nil {
		return domain.StatusOverdue
	}
	return status
}
