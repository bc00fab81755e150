package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Student struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	ClassLabel     string       `gorm:"not null;index" json:"class_label"`
	EnrollmentYear int          `gorm:"not null" json:"enrollment_year"`
	ParentName     string       `gorm:"not null;default:''" json:"parent_name"`
	ParentPhone    string       `gorm:"not null" json:"parent_phone"`
	ParentEmail    *string      `json:"parent_email,omitempty"`
	LoginID        string       `gorm:"not null;uniqueIndex" json:"login_id"`
	PasswordHash   string       `gorm:"not null" json:"-"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "students" }
