// Package dbtest opens a throwaway migrated sqlite database for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"bugboard/internal/core/database"
)

// Open 每个测试一个独立的 sqlite 文件，外键开启，已迁移
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(tb.TempDir(), "bugboard.db"),
		LogLevel: "silent",
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
