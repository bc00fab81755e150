package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, year *AcademicYear) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AcademicYear, error)
	List(ctx context.Context, db *gorm.DB) ([]*AcademicYear, error)
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	CountPeriods(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
