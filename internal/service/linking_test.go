package service

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/store"
	"github.com/adhiadhi/oxeye-server/internal/util"
)

const testNow int64 = 1700000000

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGenerateCode(t *testing.T) {
	codeFormat := regexp.MustCompile(`^oxeye-[a-z2-9]{6}$`)

	t.Run("matches the expected format", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			assert.Regexp(t, codeFormat, generateCode())
		}
	})

	t.Run("avoids ambiguous characters", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			suffix := strings.TrimPrefix(generateCode(), util.CodePrefix)
			assert.NotContains(t, suffix, "i")
			assert.NotContains(t, suffix, "l")
			assert.NotContains(t, suffix, "o")
			assert.NotContains(t, suffix, "0")
			assert.NotContains(t, suffix, "1")
		}
	})

	t.Run("does not repeat in practice", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			seen[generateCode()] = struct{}{}
		}
		assert.Len(t, seen, 100)
	})
}

func TestLinkingService_CreateLink(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending link with a fresh code", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)
		assert.Regexp(t, `^oxeye-[a-z2-9]{6}$`, link.Code)
		assert.Equal(t, int64(42), link.GuildID)
		assert.Equal(t, "survival", link.ServerName)
	})

	t.Run("rejects a blank server name", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		_, err := svc.CreateLink(ctx, 42, "   ", testNow)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("rejects a name already linked in the guild", func(t *testing.T) {
		st := openTestStore(t)
		svc := NewLinkingService(st)

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)
		_, err = svc.Connect(ctx, link.Code, testNow)
		require.NoError(t, err)

		_, err = svc.CreateLink(ctx, 42, "survival", testNow)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNameConflict))
	})

	t.Run("same name is fine in a different guild", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		_, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)
		_, err = svc.CreateLink(ctx, 43, "survival", testNow)
		assert.NoError(t, err)
	})
}

func TestLinkingService_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a code and mints an api key", func(t *testing.T) {
		st := openTestStore(t)
		svc := NewLinkingService(st)

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)

		result, err := svc.Connect(ctx, link.Code, testNow)
		require.NoError(t, err)
		assert.Len(t, result.APIKey, 64)
		assert.Equal(t, "survival", result.Server.Name)
		assert.Equal(t, int64(42), result.Server.GuildID)

		// the key authenticates against the store by its hash
		server, err := st.GetServerByAPIKey(ctx, util.HashAPIKey(result.APIKey))
		require.NoError(t, err)
		require.NotNil(t, server)
		assert.Equal(t, "survival", server.Name)
	})

	t.Run("a code is single-use", func(t *testing.T) {
		st := openTestStore(t)
		svc := NewLinkingService(st)

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)

		_, err = svc.Connect(ctx, link.Code, testNow)
		require.NoError(t, err)

		_, err = svc.Connect(ctx, link.Code, testNow)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLinkNotFound))
	})

	t.Run("expired codes cannot be claimed", func(t *testing.T) {
		st := openTestStore(t)
		svc := NewLinkingService(st)

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)

		_, err = svc.Connect(ctx, link.Code, testNow+601)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLinkNotFound))
	})

	t.Run("rejects malformed codes before touching storage", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		_, err := svc.Connect(ctx, "not-a-code", testNow)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("unknown codes yield link not found", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		_, err := svc.Connect(ctx, "oxeye-zzzzzz", testNow)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLinkNotFound))
	})
}

func TestLinkingService_Disconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("unlinks a connected server", func(t *testing.T) {
		st := openTestStore(t)
		svc := NewLinkingService(st)

		link, err := svc.CreateLink(ctx, 42, "survival", testNow)
		require.NoError(t, err)
		result, err := svc.Connect(ctx, link.Code, testNow)
		require.NoError(t, err)

		hash := util.HashAPIKey(result.APIKey)
		require.NoError(t, svc.Disconnect(ctx, hash))

		server, err := st.GetServerByAPIKey(ctx, hash)
		require.NoError(t, err)
		assert.Nil(t, server)
	})

	t.Run("fails for an unknown key", func(t *testing.T) {
		svc := NewLinkingService(openTestStore(t))

		err := svc.Disconnect(ctx, util.HashAPIKey("bogus"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidAPIKey))
	})
}
