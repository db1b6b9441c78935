package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.db")

	db, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	for _, table := range []string{"documents", "runs"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
	require.NoError(t, db.Close())

	// reopening an up-to-date database is a no-op
	db, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
