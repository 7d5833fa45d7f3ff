package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	// Migrate is idempotent
	require.NoError(t, db.Migrate(ctx))

	var count int
	err = db.GetContext(ctx, &count, `SELECT COUNT(*) FROM servers`)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	_, err = db.ExecContext(ctx, `
		INSERT INTO player_skins (player_name, texture_hash, last_updated)
		VALUES ('Steve', 'no-such-skin', 0)
	`)
	assert.Error(t, err, "player_skins must reference an existing skin")
}

func TestWithTx(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO servers (api_key_hash, name, guild_id) VALUES ('h1', 'Survival', 42)
			`)
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM servers`))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		wantErr := errors.New("abort")
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO servers (api_key_hash, name, guild_id) VALUES ('h2', 'Creative', 42)
			`)
			require.NoError(t, err)
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		var count int
		require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM servers WHERE api_key_hash = 'h2'`))
		assert.Equal(t, 0, count)
	})
}
