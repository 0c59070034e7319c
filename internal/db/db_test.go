package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gammad.sqlite")

	database, err := Open(path)
	require.NoError(t, err)

	for _, table := range []string{"transitions", "resource_state"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
	require.NoError(t, database.Close())

	// Reopening an existing database is fine.
	database, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, database.Close())
}

func TestOpenMemory(t *testing.T) {
	database, err := Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec(`INSERT INTO resource_state (kind, id, payload, updated_at) VALUES ('k', 'i', '{}', 0)`)
	assert.NoError(t, err)
}
