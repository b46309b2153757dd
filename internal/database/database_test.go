package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meseeks-ai/meseeks/internal/database"
	"github.com/meseeks-ai/meseeks/internal/database/databasetest"
)

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	db, err := database.New(context.Background(), "postgres://localhost:notaport/db")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestMigrate_Idempotent(t *testing.T) {
	_ = databasetest.Open(t)

	require.NoError(t, database.Migrate(databasetest.URL()))
	require.NoError(t, database.Migrate(databasetest.URL()))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	pool := databasetest.Open(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (clerk_user_id) VALUES ('user_rollback')`)
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE clerk_user_id = 'user_rollback'`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTx_Commits(t *testing.T) {
	pool := databasetest.Open(t)
	ctx := context.Background()

	err := database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (clerk_user_id) VALUES ('user_commit')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE clerk_user_id = 'user_commit'`).Scan(&count))
	assert.Equal(t, 1, count)
}
