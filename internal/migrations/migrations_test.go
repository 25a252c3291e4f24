package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	path := filepath.Join(t.TempDir(), "migrations.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestUp_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Up(db))

	for _, table := range []string{"accounts", "forwarding_rules", "message_map", "whatsapp_groups"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Up(db))
	require.NoError(t, Up(db))
}

func TestDown_DropsSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Up(db))

	require.NoError(t, Down(db, 1))
	assert.False(t, tableExists(t, db, "accounts"))

	version, _, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestVersion_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}
