package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/audit"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/model"
	"github.com/adhiadhi/oxeye-server/internal/store"
	"github.com/adhiadhi/oxeye-server/internal/util"
)

type contextKey string

const ServerContextKey contextKey = "server"

// GetServer returns the authenticated server, or nil outside the auth chain.
func GetServer(ctx context.Context) *model.Server {
	if server, ok := ctx.Value(ServerContextKey).(*model.Server); ok {
		return server
	}
	return nil
}

type AuthMiddleware struct {
	store *store.Store
}

func NewAuthMiddleware(st *store.Store) *AuthMiddleware {
	return &AuthMiddleware{store: st}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			writeError(w, apperrors.Unauthorized("Missing API key"))
			return
		}

		server, err := m.store.GetServerByAPIKey(r.Context(), util.HashAPIKey(apiKey))
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: storage error")
			writeError(w, apperrors.Internal("Authentication failed"))
			return
		}

		if server == nil {
			log.Warn().Msg("auth middleware: invalid api key attempt")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeError(w, apperrors.InvalidAPIKey())
			return
		}

		ctx := context.WithValue(r.Context(), ServerContextKey, server)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
