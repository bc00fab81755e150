package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingPeriod is one month of an academic year. DueDate is a calendar date stored as UTC midnight.
type BillingPeriod struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	AcademicYearID snowflake.ID `gorm:"not null;uniqueIndex:billing_periods_year_month_key" json:"academic_year_id"`
	Month          int          `gorm:"not null;uniqueIndex:billing_periods_year_month_key" json:"month"`
	Label          string       `gorm:"not null" json:"label"`
	DueDate        time.Time    `gorm:"type:date;not null" json:"due_date"`
	IsActive       bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (BillingPeriod) TableName() string { return "billing_periods" }

// DefaultLabel renders "March 2025" style labels.
func DefaultLabel(month int, year int) string {
	return fmt.Sprintf("%s %d", time.Month(month), year)
}
