package domain

import (
	"context"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, student *Student) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	List(ctx context.Context, db *gorm.DB, filter ListStudentFilter, page pagination.Pagination) ([]*Student, error)
	Update(ctx context.Context, db *gorm.DB, student *Student) error
	UpdatePassword(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
