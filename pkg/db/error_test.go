package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert fees: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: fee_records.student_id, fee_records.billing_period_id")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
}

func TestIsForeignKeyErr(t *testing.T) {
	assert.False(t, IsForeignKeyErr(nil))
	assert.False(t, IsForeignKeyErr(errors.New("UNIQUE constraint failed: students.login_id")))
	assert.True(t, IsForeignKeyErr(gorm.ErrForeignKeyViolated))
	assert.True(t, IsForeignKeyErr(fmt.Errorf("insert fees: %w", &pgconn.PgError{Code: "23503"})))
	assert.True(t, IsForeignKeyErr(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
	assert.True(t, IsForeignKeyErr(errors.New("Error 1452: Cannot add or update a child row")))

	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))
}

func TestDialect(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(Config{Type: "POSTGRES", Host: "localhost"})
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	assert.Equal(t, "feefriend.db", sqlitePath(""))
	assert.Equal(t, "school.db", sqlitePath("school"))
	assert.Equal(t, "file:test?mode=memory", sqlitePath("file:test?mode=memory"))
}
