package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO students (id, name, class_label, enrollment_year, parent_name, parent_phone, parent_email, login_id, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		student.ID,
		student.Name,
		student.ClassLabel,
		student.EnrollmentYear,
		student.ParentName,
		student.ParentPhone,
		student.ParentEmail,
		student.LoginID,
		student.PasswordHash,
		student.CreatedAt,
		student.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, class_label, enrollment_year, parent_name, parent_phone, parent_email, login_id, password_hash, created_at, updated_at
		 FROM students WHERE id = ?`,
		id,
	).Scan(&student).Error
	if err != nil {
		return nil, err
	}
	if student.ID == 0 {
		return nil, nil
	}
	return &student, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListStudentFilter, page pagination.Pagination) ([]*domain.Student, error) {
	var students []*domain.Student
	stmt := db.WithContext(ctx).Model(&domain.Student{})
	if filter.ClassLabel != "" {
		stmt = stmt.Where("class_label = ?", filter.ClassLabel)
	}
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	stmt, err := pagination.Apply(stmt, "id", page)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return db.WithContext(ctx).Exec(
		`UPDATE students
		 SET name = ?, class_label = ?, enrollment_year = ?, parent_name = ?, parent_phone = ?, parent_email = ?, updated_at = ?
		 WHERE id = ?`,
		student.Name,
		student.ClassLabel,
		student.EnrollmentYear,
		student.ParentName,
		student.ParentPhone,
		student.ParentEmail,
		student.UpdatedAt,
		student.ID,
	).Error
}

func (r *repo) UpdatePassword(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE students SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	)
	return result.RowsAffected, result.Error
}

// Delete removes the student; fee records, other payments and notifications cascade.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM students WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}
