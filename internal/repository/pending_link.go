package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/adhiadhi/oxeye-server/internal/database"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/model"
)

type PendingLinkRepository interface {
	// Create inserts a new pending link. The conflict check against existing
	// servers and the insert run in one transaction.
	Create(ctx context.Context, code string, guildID int64, serverName string, now int64) (*model.PendingLink, error)
	// Find returns the link by code, or nil if absent. Expiry is not checked.
	Find(ctx context.Context, code string) (*model.PendingLink, error)
	// Consume deletes the link and returns it. Expired links are deleted and
	// reported as not found; a spent or unknown code is also not found.
	Consume(ctx context.Context, code string, now int64) (*model.PendingLink, error)
	// DeleteExpired removes all links older than the TTL.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

type pendingLinkRepo struct {
	db         *database.DB
	ttlSeconds int64
}

func NewPendingLinkRepository(db *database.DB, ttlSeconds int64) PendingLinkRepository {
	return &pendingLinkRepo{db: db, ttlSeconds: ttlSeconds}
}

func (r *pendingLinkRepo) Create(ctx context.Context, code string, guildID int64, serverName string, now int64) (*model.PendingLink, error) {
	var nameTaken bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS(SELECT 1 FROM servers WHERE guild_id = ? AND name = ?)
		`, guildID, serverName)
		if err != nil {
			return err
		}
		if exists {
			nameTaken = true
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pending_links (code, guild_id, server_name, created_at)
			VALUES (?, ?, ?, ?)
		`, code, guildID, serverName, now)
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "pending_links.code") {
			return nil, apperrors.Conflict("Connection code already exists")
		}
		return nil, err
	}
	if nameTaken {
		return nil, apperrors.NameConflict()
	}

	return &model.PendingLink{
		Code:       code,
		GuildID:    guildID,
		ServerName: serverName,
		CreatedAt:  now,
	}, nil
}

func (r *pendingLinkRepo) Find(ctx context.Context, code string) (*model.PendingLink, error) {
	var link model.PendingLink
	err := r.db.GetContext(ctx, &link, `
		SELECT code, guild_id, server_name, created_at FROM pending_links
		WHERE code = ?
	`, code)
	return HandleNotFound(&link, err)
}

func (r *pendingLinkRepo) Consume(ctx context.Context, code string, now int64) (*model.PendingLink, error) {
	var link *model.PendingLink
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var pl model.PendingLink
		err := tx.GetContext(ctx, &pl, `
			SELECT code, guild_id, server_name, created_at FROM pending_links
			WHERE code = ?
		`, code)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		// Delete-on-read: the row goes away whether the link is consumed or
		// merely discovered to be expired.
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_links WHERE code = ?`, code); err != nil {
			return err
		}

		if !pl.IsExpired(now, r.ttlSeconds) {
			link = &pl
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, apperrors.LinkNotFound()
	}
	return link, nil
}

func (r *pendingLinkRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	cutoff := now - r.ttlSeconds
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_links WHERE created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
