package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("LinkCodeTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{LinkCodeTTLSeconds: 600}
		assert.Equal(t, 600*time.Second, cfg.LinkCodeTTL())
	})
}

func TestValidate(t *testing.T) {
	valid := Config{
		LinkCodeTTLSeconds: 600,
		MaxSyncPlayers:     1000,
		MaxSkinBytes:       65536,
	}

	t.Run("accepts sane defaults", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects non-positive TTL", func(t *testing.T) {
		cfg := valid
		cfg.LinkCodeTTLSeconds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive sync cap", func(t *testing.T) {
		cfg := valid
		cfg.MaxSyncPlayers = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive skin cap", func(t *testing.T) {
		cfg := valid
		cfg.MaxSkinBytes = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 600, cfg.LinkCodeTTLSeconds)
		assert.Equal(t, 1000, cfg.MaxSyncPlayers)
		assert.Equal(t, "oxeye.db", cfg.DatabasePath)
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("LINK_CODE_TTL_SECONDS", "300")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 300, cfg.LinkCodeTTLSeconds)
	})
}
