package model

// Skin is a unique skin texture, deduplicated by content hash.
type Skin struct {
	TextureHash string  `db:"texture_hash"`
	TextureURL  *string `db:"texture_url"`
	SkinData    []byte  `db:"skin_data"`
}

// PlayerSkin maps a player to their current skin texture.
type PlayerSkin struct {
	PlayerName  string `db:"player_name"`
	TextureHash string `db:"texture_hash"`
	LastUpdated int64  `db:"last_updated"`
}

// RenderedHead is a cached 64x64 head render for one skin texture.
type RenderedHead struct {
	TextureHash string `db:"texture_hash"`
	HeadData    []byte `db:"head_data"`
	RenderedAt  int64  `db:"rendered_at"`
}

// StatusImage is a cached composite status render for one server.
type StatusImage struct {
	APIKeyHash string `db:"api_key_hash"`
	ImageData  []byte `db:"image_data"`
	UpdatedAt  int64  `db:"updated_at"`
}
