package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/audit"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/middleware"
	"github.com/adhiadhi/oxeye-server/internal/service"
	"github.com/adhiadhi/oxeye-server/internal/store"
	"github.com/adhiadhi/oxeye-server/internal/util"
)

// PresenceHandler is the authenticated surface the game-server mod talks to:
// join/leave/sync roster updates plus disconnect and a status probe.
type PresenceHandler struct {
	store   *store.Store
	linking *service.LinkingService
	limits  PresenceLimits
}

type PresenceLimits struct {
	MaxSyncPlayers int
}

func NewPresenceHandler(st *store.Store, linking *service.LinkingService, limits PresenceLimits) *PresenceHandler {
	return &PresenceHandler{store: st, linking: linking, limits: limits}
}

func (h *PresenceHandler) Register(r chi.Router) {
	r.Post("/join", h.Join)
	r.Post("/leave", h.Leave)
	r.Post("/sync", h.Sync)
	r.Post("/disconnect", h.Disconnect)
	r.Get("/status", h.Status)
}

// POST /api/v1/join
//
// Records a player join. When the request carries a texture hash we have no
// skin for, responds 202 so the mod follows up with the skin upload; the
// player-to-skin mapping is deferred until that upload lands.
func (h *PresenceHandler) Join(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	var req struct {
		Player      string `json:"player"`
		TextureHash string `json:"texture_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := util.ValidatePlayerName(req.Player); err != nil {
		writeError(w, err)
		return
	}
	if req.TextureHash != "" {
		if err := util.ValidateTextureHash(req.TextureHash); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx := r.Context()
	now := time.Now().Unix()

	if err := h.store.PlayerJoin(ctx, server.APIKeyHash, req.Player, now); err != nil {
		writeError(w, err)
		return
	}

	needSkin := false
	if req.TextureHash != "" {
		exists, err := h.store.SkinExists(ctx, req.TextureHash)
		if err != nil {
			writeError(w, err)
			return
		}
		if exists {
			if err := h.store.UpdatePlayerSkin(ctx, req.Player, req.TextureHash, now); err != nil {
				writeError(w, err)
				return
			}
		}
		needSkin = !exists
	}

	if needSkin {
		writeJSON(w, http.StatusAccepted, map[string]bool{"need_skin": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/v1/leave
func (h *PresenceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	var req struct {
		Player string `json:"player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := util.ValidatePlayerName(req.Player); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.PlayerLeave(r.Context(), server.APIKeyHash, req.Player); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/v1/sync
//
// Full roster replacement; the authoritative reset after restarts or missed
// events.
func (h *PresenceHandler) Sync(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	var req struct {
		Players []string `json:"players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := util.ValidateSyncList(req.Players, h.limits.MaxSyncPlayers); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.SyncPlayers(r.Context(), server.APIKeyHash, req.Players, time.Now().Unix()); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(req.Players),
	})
}

// POST /api/v1/disconnect
//
// Self-service unlink: removes the server row, its presence entry and its
// cached status image. The API key is dead afterwards.
func (h *PresenceHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	if err := h.linking.Disconnect(r.Context(), server.APIKeyHash); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:       audit.EventServerDisconnect,
		GuildID:    server.GuildID,
		ServerName: server.Name,
	})

	log.Info().Str("serverName", server.Name).Msg("server disconnected")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/v1/status
//
// Liveness probe for the link itself: the auth middleware already proved the
// key, so reaching here means the server is still linked.
func (h *PresenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	players, err := h.store.GetOnlinePlayers(r.Context(), server.APIKeyHash)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"server":       server.Name,
		"players":      players,
		"player_count": len(players),
		"synced":       h.store.IsServerSynced(server.APIKeyHash),
	})
}
