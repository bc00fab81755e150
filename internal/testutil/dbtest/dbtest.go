// Package dbtest opens in-memory SQLite databases carrying the production schema.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/migration"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a database private to t. A single connection keeps the shared-cache
// database free of table locks when goroutines write concurrently.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migration.ApplySQLiteSchema(context.Background(), db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// Count returns the number of rows matching query.
func Count(t testing.TB, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()

	var n int64
	if err := db.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
