package repository

import (
	"context"

	"github.com/adhiadhi/oxeye-server/internal/database"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/model"
)

type ServerRepository interface {
	Create(ctx context.Context, apiKeyHash, name string, guildID int64) (*model.Server, error)
	FindByAPIKeyHash(ctx context.Context, apiKeyHash string) (*model.Server, error)
	FindByGuild(ctx context.Context, guildID int64) ([]model.Server, error)
	FindByGuildAndName(ctx context.Context, guildID int64, name string) (*model.Server, error)
	NameExists(ctx context.Context, guildID int64, name string) (bool, error)
	Exists(ctx context.Context, apiKeyHash string) (bool, error)
	ListAPIKeyHashes(ctx context.Context) ([]string, error)
	DeleteByGuildAndName(ctx context.Context, guildID int64, name string) (string, error)
	DeleteByAPIKeyHash(ctx context.Context, apiKeyHash string) error
}

type serverRepo struct {
	db *database.DB
}

func NewServerRepository(db *database.DB) ServerRepository {
	return &serverRepo{db: db}
}

func (r *serverRepo) Create(ctx context.Context, apiKeyHash, name string, guildID int64) (*model.Server, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO servers (api_key_hash, name, guild_id) VALUES (?, ?, ?)
	`, apiKeyHash, name, guildID)
	if err != nil {
		if isUniqueViolation(err, "servers.guild_id") {
			return nil, apperrors.NameConflict()
		}
		if isUniqueViolation(err, "servers.api_key_hash") {
			return nil, apperrors.Conflict("Server identity already exists")
		}
		return nil, err
	}

	return &model.Server{
		APIKeyHash: apiKeyHash,
		Name:       name,
		GuildID:    guildID,
	}, nil
}

func (r *serverRepo) FindByAPIKeyHash(ctx context.Context, apiKeyHash string) (*model.Server, error) {
	var server model.Server
	err := r.db.GetContext(ctx, &server, `
		SELECT api_key_hash, name, guild_id FROM servers WHERE api_key_hash = ?
	`, apiKeyHash)
	return HandleNotFound(&server, err)
}

func (r *serverRepo) FindByGuild(ctx context.Context, guildID int64) ([]model.Server, error) {
	var servers []model.Server
	err := r.db.SelectContext(ctx, &servers, `
		SELECT api_key_hash, name, guild_id FROM servers
		WHERE guild_id = ?
		ORDER BY name
	`, guildID)
	return servers, err
}

func (r *serverRepo) FindByGuildAndName(ctx context.Context, guildID int64, name string) (*model.Server, error) {
	var server model.Server
	err := r.db.GetContext(ctx, &server, `
		SELECT api_key_hash, name, guild_id FROM servers
		WHERE guild_id = ? AND name = ?
	`, guildID, name)
	return HandleNotFound(&server, err)
}

func (r *serverRepo) NameExists(ctx context.Context, guildID int64, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM servers WHERE guild_id = ? AND name = ?)
	`, guildID, name)
	return exists, err
}

func (r *serverRepo) Exists(ctx context.Context, apiKeyHash string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM servers WHERE api_key_hash = ?)
	`, apiKeyHash)
	return exists, err
}

func (r *serverRepo) ListAPIKeyHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	err := r.db.SelectContext(ctx, &hashes, `SELECT api_key_hash FROM servers`)
	return hashes, err
}

// DeleteByGuildAndName removes the server and returns its api_key_hash so the
// caller can cascade into the presence tier.
func (r *serverRepo) DeleteByGuildAndName(ctx context.Context, guildID int64, name string) (string, error) {
	server, err := r.FindByGuildAndName(ctx, guildID, name)
	if err != nil {
		return "", err
	}
	if server == nil {
		return "", apperrors.NotFound("Server")
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM servers WHERE guild_id = ? AND name = ?
	`, guildID, name)
	if err != nil {
		return "", err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if deleted == 0 {
		return "", apperrors.NotFound("Server")
	}
	return server.APIKeyHash, nil
}

func (r *serverRepo) DeleteByAPIKeyHash(ctx context.Context, apiKeyHash string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM servers WHERE api_key_hash = ?
	`, apiKeyHash)
	if err != nil {
		return err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperrors.InvalidAPIKey()
	}
	return nil
}
