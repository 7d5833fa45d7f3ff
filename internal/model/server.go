package model

// Server is a linked game server. The API key hash is the identity; the raw
// key is never stored.
type Server struct {
	APIKeyHash string `db:"api_key_hash" json:"-"`
	Name       string `db:"name" json:"name"`
	GuildID    int64  `db:"guild_id" json:"guildId"`
}

// PlayerInfo is an online player as seen by read paths.
type PlayerInfo struct {
	PlayerName string `json:"playerName"`
	JoinedAt   int64  `json:"joinedAt"`
}

// ServerSummary is a server with its live player count.
type ServerSummary struct {
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
}

// ServerWithPlayers is a server with its full online roster.
type ServerWithPlayers struct {
	Name    string       `json:"name"`
	Players []PlayerInfo `json:"players"`
}

// PlayerHead pairs an online player with their current skin texture hash,
// if one is known.
type PlayerHead struct {
	PlayerName  string
	TextureHash string // empty when no skin mapping exists
}
