package model

// PendingLinkTTLSeconds is the default lifetime of a connection code.
// The running server takes the effective value from LINK_CODE_TTL_SECONDS.
const PendingLinkTTLSeconds int64 = 600

// PendingLink is a connection code waiting for a game server to claim it.
type PendingLink struct {
	Code       string `db:"code" json:"code"`
	GuildID    int64  `db:"guild_id" json:"guildId"`
	ServerName string `db:"server_name" json:"serverName"`
	CreatedAt  int64  `db:"created_at" json:"createdAt"`
}

// IsExpired reports whether the code can no longer be consumed at the given
// unix time.
func (l *PendingLink) IsExpired(now, ttlSeconds int64) bool {
	return now-l.CreatedAt > ttlSeconds
}

// ExpiresIn returns the seconds remaining until expiry, clamped at zero.
func (l *PendingLink) ExpiresIn(now, ttlSeconds int64) int64 {
	remaining := l.CreatedAt + ttlSeconds - now
	if remaining < 0 {
		return 0
	}
	return remaining
}
