package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Run("generates 64-char hex keys", func(t *testing.T) {
		key, err := GenerateAPIKey()
		require.NoError(t, err)
		assert.Len(t, key, 64)
	})

	t.Run("generates unique keys", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			key, err := GenerateAPIKey()
			require.NoError(t, err)
			assert.False(t, seen[key], "duplicate key generated")
			seen[key] = true
		}
	})
}

func TestHashAPIKey(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, HashAPIKey("secret"), HashAPIKey("secret"))
	})

	t.Run("differs per input", func(t *testing.T) {
		assert.NotEqual(t, HashAPIKey("a"), HashAPIKey("b"))
	})

	t.Run("is 64-char hex", func(t *testing.T) {
		assert.Len(t, HashAPIKey("anything"), 64)
	})
}
