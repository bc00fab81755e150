package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AcademicYear struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Year      int          `gorm:"not null;uniqueIndex" json:"year"`
	IsActive  bool         `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (AcademicYear) TableName() string { return "academic_years" }
