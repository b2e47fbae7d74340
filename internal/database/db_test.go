package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	v, _, err := SchemaVersion(path)
	require.NoError(t, err)
	require.Zero(t, v)

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), v)

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name LIKE 'journal_%'`).Scan(&n))
	require.Equal(t, 2, n)
}

func TestWithTxRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	require.NoError(t, RunMigrations(path))
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	boom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO journal_sessions(id, started_at) VALUES ('a', ?)`, Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM journal_sessions`).Scan(&n))
	require.Zero(t, n)
}
