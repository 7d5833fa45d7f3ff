package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DBTX is an interface that both *sqlx.DB and *sqlx.Tx satisfy.
// This allows repositories to work with either a direct connection or a transaction.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Ensure *sqlx.DB and *sqlx.Tx implement DBTX
var _ DBTX = (*sqlx.DB)(nil)
var _ DBTX = (*sqlx.Tx)(nil)

type DB struct {
	*sqlx.DB
}

// Connect opens (or creates) the SQLite database at path. Pass ":memory:" for
// an ephemeral database.
func Connect(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection also serializes all
	// mutations into a total order.
	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
-- Pending connection codes (expire after 10 minutes)
CREATE TABLE IF NOT EXISTS pending_links (
    code TEXT PRIMARY KEY,
    guild_id INTEGER NOT NULL,
    server_name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

-- Linked servers (API key hash is primary key)
CREATE TABLE IF NOT EXISTS servers (
    api_key_hash TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    guild_id INTEGER NOT NULL,
    UNIQUE(guild_id, name)
);

CREATE INDEX IF NOT EXISTS idx_servers_guild ON servers(guild_id);

-- Unique skin textures, deduplicated by texture hash
CREATE TABLE IF NOT EXISTS skins (
    texture_hash TEXT PRIMARY KEY,
    texture_url TEXT,
    skin_data BLOB NOT NULL
);

-- Maps players to their current skin
CREATE TABLE IF NOT EXISTS player_skins (
    player_name TEXT PRIMARY KEY,
    texture_hash TEXT NOT NULL,
    last_updated INTEGER NOT NULL,
    FOREIGN KEY (texture_hash) REFERENCES skins(texture_hash)
);

-- Rendered head images (one per unique skin)
CREATE TABLE IF NOT EXISTS rendered_heads (
    texture_hash TEXT PRIMARY KEY,
    head_data BLOB NOT NULL,
    rendered_at INTEGER NOT NULL,
    FOREIGN KEY (texture_hash) REFERENCES skins(texture_hash)
);

-- Cached composite status images (one per server)
CREATE TABLE IF NOT EXISTS status_images (
    api_key_hash TEXT PRIMARY KEY,
    image_data BLOB NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (api_key_hash) REFERENCES servers(api_key_hash) ON DELETE CASCADE
);
`

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// TxFunc is a function that runs within a transaction.
type TxFunc func(tx *sqlx.Tx) error

// WithTx executes fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (db *DB) WithTx(ctx context.Context, fn TxFunc) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
