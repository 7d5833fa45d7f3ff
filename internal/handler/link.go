package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/audit"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/service"
)

// LinkHandler covers the unauthenticated half of the handshake: a game server
// trades its one-time connection code for an API key.
type LinkHandler struct {
	linking *service.LinkingService
}

func NewLinkHandler(linking *service.LinkingService) *LinkHandler {
	return &LinkHandler{linking: linking}
}

func (h *LinkHandler) Register(r chi.Router) {
	r.Post("/connect", h.Connect)
}

// POST /api/v1/connect
// Claims a connection code. The raw API key appears only in this response.
func (h *LinkHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	result, err := h.linking.Connect(r.Context(), req.Code, time.Now().Unix())
	if err != nil {
		log.Warn().Err(err).Msg("connect failed")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:       audit.EventServerConnect,
		GuildID:    result.Server.GuildID,
		ServerName: result.Server.Name,
	})

	writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": result.APIKey,
	})
}
