package repository

import (
	"context"

	"github.com/adhiadhi/oxeye-server/internal/database"
	"github.com/adhiadhi/oxeye-server/internal/model"
)

// BlobRepository holds the content-addressed binary tables: skin textures,
// the player->skin mapping, rendered heads, and cached status composites.
// All writes are insert-or-replace; reads return (nil, nil) for absent rows.
type BlobRepository interface {
	StoreSkin(ctx context.Context, textureHash string, textureURL *string, skinData []byte) error
	GetSkinData(ctx context.Context, textureHash string) ([]byte, error)
	SkinExists(ctx context.Context, textureHash string) (bool, error)

	UpdatePlayerSkin(ctx context.Context, playerName, textureHash string, now int64) error
	GetPlayerTextureHash(ctx context.Context, playerName string) (string, error)

	StoreRenderedHead(ctx context.Context, textureHash string, headData []byte, now int64) error
	GetRenderedHead(ctx context.Context, textureHash string) ([]byte, error)

	StoreStatusImage(ctx context.Context, apiKeyHash string, imageData []byte, now int64) error
	GetStatusImage(ctx context.Context, apiKeyHash string) ([]byte, error)
	DeleteStatusImage(ctx context.Context, apiKeyHash string) error
}

type blobRepo struct {
	db *database.DB
}

func NewBlobRepository(db *database.DB) BlobRepository {
	return &blobRepo{db: db}
}

func (r *blobRepo) StoreSkin(ctx context.Context, textureHash string, textureURL *string, skinData []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO skins (texture_hash, texture_url, skin_data)
		VALUES (?, ?, ?)
	`, textureHash, textureURL, skinData)
	return err
}

func (r *blobRepo) GetSkinData(ctx context.Context, textureHash string) ([]byte, error) {
	var skin model.Skin
	err := r.db.GetContext(ctx, &skin, `
		SELECT texture_hash, texture_url, skin_data FROM skins WHERE texture_hash = ?
	`, textureHash)
	found, err := HandleNotFound(&skin, err)
	if err != nil || found == nil {
		return nil, err
	}
	return found.SkinData, nil
}

func (r *blobRepo) SkinExists(ctx context.Context, textureHash string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM skins WHERE texture_hash = ?)
	`, textureHash)
	return exists, err
}

func (r *blobRepo) UpdatePlayerSkin(ctx context.Context, playerName, textureHash string, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO player_skins (player_name, texture_hash, last_updated)
		VALUES (?, ?, ?)
	`, playerName, textureHash, now)
	return err
}

// GetPlayerTextureHash returns the player's current texture hash, or "" when
// no mapping exists.
func (r *blobRepo) GetPlayerTextureHash(ctx context.Context, playerName string) (string, error) {
	var mapping model.PlayerSkin
	err := r.db.GetContext(ctx, &mapping, `
		SELECT player_name, texture_hash, last_updated FROM player_skins
		WHERE player_name = ?
	`, playerName)
	found, err := HandleNotFound(&mapping, err)
	if err != nil || found == nil {
		return "", err
	}
	return found.TextureHash, nil
}

func (r *blobRepo) StoreRenderedHead(ctx context.Context, textureHash string, headData []byte, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rendered_heads (texture_hash, head_data, rendered_at)
		VALUES (?, ?, ?)
	`, textureHash, headData, now)
	return err
}

func (r *blobRepo) GetRenderedHead(ctx context.Context, textureHash string) ([]byte, error) {
	var head model.RenderedHead
	err := r.db.GetContext(ctx, &head, `
		SELECT texture_hash, head_data, rendered_at FROM rendered_heads
		WHERE texture_hash = ?
	`, textureHash)
	found, err := HandleNotFound(&head, err)
	if err != nil || found == nil {
		return nil, err
	}
	return found.HeadData, nil
}

func (r *blobRepo) StoreStatusImage(ctx context.Context, apiKeyHash string, imageData []byte, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO status_images (api_key_hash, image_data, updated_at)
		VALUES (?, ?, ?)
	`, apiKeyHash, imageData, now)
	return err
}

func (r *blobRepo) GetStatusImage(ctx context.Context, apiKeyHash string) ([]byte, error) {
	var img model.StatusImage
	err := r.db.GetContext(ctx, &img, `
		SELECT api_key_hash, image_data, updated_at FROM status_images
		WHERE api_key_hash = ?
	`, apiKeyHash)
	found, err := HandleNotFound(&img, err)
	if err != nil || found == nil {
		return nil, err
	}
	return found.ImageData, nil
}

func (r *blobRepo) DeleteStatusImage(ctx context.Context, apiKeyHash string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM status_images WHERE api_key_hash = ?
	`, apiKeyHash)
	return err
}
