package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "products.db")

	db, err := Open("sqlite", dsn, "test")
	require.NoError(t, err)
	defer Close(db)

	assert.True(t, db.Migrator().HasTable("products"))
	assert.True(t, db.Migrator().HasColumn("products", "expiry_date"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", "test")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "products.db?_journal_mode=WAL", sqliteDSN("products.db"))
	assert.Equal(t, "products.db?cache=shared&_journal_mode=WAL", sqliteDSN("products.db?cache=shared"))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN("file::memory:?cache=shared"))
	assert.Equal(t, "file:x?mode=memory&cache=shared", sqliteDSN("file:x?mode=memory&cache=shared"))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
