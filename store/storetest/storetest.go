// Package storetest opens throwaway migrated databases for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"foodconnect/config"

	"gorm.io/gorm"
)

func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := config.OpenDB(filepath.Join(t.TempDir(), "foodconnect_test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
