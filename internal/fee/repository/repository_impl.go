package repository

import (
	"context"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const insertBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const detailColumns = `f.id, f.student_id, f.billing_period_id, f.amount, f.status, f.payment_date,
	f.transaction_id, f.external_payment_id, f.reminder_sent, f.notification_sent, f.created_at, f.updated_at,
	s.name AS student_name, s.class_label AS class_label, s.parent_phone AS parent_phone,
	bp.label AS period_label, bp.due_date AS due_date`

const detailJoins = `FROM fee_records f
	JOIN students s ON s.id = f.student_id
	JOIN billing_periods bp ON bp.id = f.billing_period_id`

func (r *repo) ExistingStudentIDs(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT student_id FROM fee_records WHERE billing_period_id = ?`,
		billingPeriodID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) CountStudents(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM students WHERE id IN ?`, ids).Scan(&count).Error
	return count, err
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, fees []*domain.FeeRecord) error {
	if len(fees) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(fees, insertBatchSize).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeRecord, error) {
	var fee domain.FeeRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, student_id, billing_period_id, amount, status, payment_date, transaction_id,
		        external_payment_id, reminder_sent, notification_sent, created_at, updated_at
		 FROM fee_records WHERE id = ?`,
		id,
	).Scan(&fee).Error
	if err != nil {
		return nil, err
	}
	if fee.ID == 0 {
		return nil, nil
	}
	return &fee, nil
}

func (r *repo) FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeDetail, error) {
	var detail domain.FeeDetail
	err := db.WithContext(ctx).Raw(
		`SELECT `+detailColumns+` `+detailJoins+` WHERE f.id = ?`,
		id,
	).Scan(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, nil
	}
	return &detail, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, filter domain.ListFeeFilter, page pagination.Pagination) ([]*domain.FeeDetail, error) {
	stmt := db.WithContext(ctx).
		Table("fee_records AS f").
		Select(detailColumns).
		Joins("JOIN students s ON s.id = f.student_id").
		Joins("JOIN billing_periods bp ON bp.id = f.billing_period_id")
	if filter.BillingPeriodID != nil {
		stmt = stmt.Where("f.billing_period_id = ?", *filter.BillingPeriodID)
	}
	if filter.StudentID != nil {
		stmt = stmt.Where("f.student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("f.status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, "f.id", page)
	if err != nil {
		return nil, err
	}

	var details []*domain.FeeDetail
	if err := stmt.Scan(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) DetailsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.FeeDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var details []*domain.FeeDetail
	err := db.WithContext(ctx).Raw(
		`SELECT `+detailColumns+` `+detailJoins+` WHERE f.id IN ? ORDER BY f.id`,
		ids,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) StudentDetails(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]*domain.FeeDetail, error) {
	var details []*domain.FeeDetail
	err := db.WithContext(ctx).Raw(
		`SELECT `+detailColumns+` `+detailJoins+` WHERE f.student_id = ? ORDER BY bp.due_date DESC, f.id DESC`,
		studentID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, today time.Time, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE fee_records
		 SET status = ?, updated_at = ?
		 WHERE status = ?
		   AND billing_period_id IN (SELECT id FROM billing_periods WHERE due_date < ?)`,
		domain.StatusOverdue, now, domain.StatusPending, today,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListUnreminded(ctx context.Context, db *gorm.DB) ([]*domain.FeeDetail, error) {
	var details []*domain.FeeDetail
	err := db.WithContext(ctx).Raw(
		`SELECT `+detailColumns+` `+detailJoins+`
		 WHERE f.status = ? AND f.reminder_sent = ?
		 ORDER BY f.id`,
		domain.StatusOverdue, false,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM fee_records WHERE status = ?`, status).Scan(&count).Error
	return count, err
}

func (r *repo) SetReminderSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_records SET reminder_sent = ?, updated_at = ? WHERE id = ? AND reminder_sent = ?`,
		true, now, id, false,
	).Error
}

func (r *repo) SetNotificationSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_records SET notification_sent = ?, updated_at = ? WHERE id = ? AND notification_sent = ?`,
		true, now, id, false,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, transactionID string, externalPaymentID *string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE fee_records
		 SET status = ?, payment_date = ?, transaction_id = ?, external_payment_id = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusPaid, paidAt, transactionID, externalPaymentID, paidAt, id, domain.StatusPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM fee_records WHERE id = ? AND status <> ?`, id, domain.StatusPaid).Error
}

func (r *repo) AssignableStudents(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]*studentdomain.Student, error) {
	var students []*studentdomain.Student
	err := db.WithContext(ctx).Raw(
		`SELECT s.id, s.name, s.class_label, s.enrollment_year, s.parent_name, s.parent_phone,
		        s.parent_email, s.login_id, s.created_at, s.updated_at
		 FROM students s
		 WHERE NOT EXISTS (
		     SELECT 1 FROM fee_records f WHERE f.student_id = s.id AND f.billing_period_id = ?
		 )
		 ORDER BY s.class_label, s.name`,
		billingPeriodID,
	).Scan(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}
