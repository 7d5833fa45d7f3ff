package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingLinkExpiry(t *testing.T) {
	link := PendingLink{
		Code:       "oxeye-abc123",
		GuildID:    42,
		ServerName: "Survival",
		CreatedAt:  1700000000,
	}

	t.Run("not expired within TTL", func(t *testing.T) {
		assert.False(t, link.IsExpired(link.CreatedAt, PendingLinkTTLSeconds))
		assert.False(t, link.IsExpired(link.CreatedAt+599, PendingLinkTTLSeconds))
		assert.False(t, link.IsExpired(link.CreatedAt+600, PendingLinkTTLSeconds))
	})

	t.Run("expired past TTL", func(t *testing.T) {
		assert.True(t, link.IsExpired(link.CreatedAt+601, PendingLinkTTLSeconds))
	})

	t.Run("honors a custom TTL", func(t *testing.T) {
		assert.False(t, link.IsExpired(link.CreatedAt+1, 1))
		assert.True(t, link.IsExpired(link.CreatedAt+2, 1))
	})

	t.Run("ExpiresIn counts down", func(t *testing.T) {
		assert.Equal(t, int64(600), link.ExpiresIn(link.CreatedAt, PendingLinkTTLSeconds))
		assert.Equal(t, int64(1), link.ExpiresIn(link.CreatedAt+599, PendingLinkTTLSeconds))
	})

	t.Run("ExpiresIn clamps at zero", func(t *testing.T) {
		assert.Equal(t, int64(0), link.ExpiresIn(link.CreatedAt+9999, PendingLinkTTLSeconds))
	})
}
