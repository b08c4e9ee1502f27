package database_test

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"bugboard/internal/core/database"
	"bugboard/internal/core/database/dbtest"
)

func TestNewGormRejectsUnknownDriver(t *testing.T) {
	c := qt.New(t)
	_, err := database.NewGorm(database.Opts{Driver: "oracle", DSN: "x"})
	c.Assert(err, qt.ErrorIs, database.ErrUnsupportedDriver)
}

func TestSQLiteForeignKeysOn(t *testing.T) {
	c := qt.New(t)
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(t.TempDir(), "fk.db"),
		LogLevel: "silent",
	})
	c.Assert(err, qt.IsNil)
	var on int
	c.Assert(db.Raw("PRAGMA foreign_keys").Scan(&on).Error, qt.IsNil)
	c.Assert(on, qt.Equals, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	c := qt.New(t)
	db := dbtest.Open(t)
	c.Assert(database.Migrate(db), qt.IsNil)
	for _, m := range database.Models() {
		c.Assert(db.Migrator().HasTable(m), qt.IsTrue, qt.Commentf("%T", m))
	}
}

func TestIsDuplicateKey(t *testing.T) {
	c := qt.New(t)
	c.Assert(database.IsDuplicateKey(nil), qt.IsFalse)
	db := dbtest.Open(t)
	c.Assert(db.Exec("INSERT INTO projects (id, name, created_at, updated_at) VALUES ('p1', 'Apollo', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)").Error, qt.IsNil)
	err := db.Exec("INSERT INTO projects (id, name, created_at, updated_at) VALUES ('p2', 'Apollo', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)").Error
	c.Assert(database.IsDuplicateKey(err), qt.IsTrue)
}
