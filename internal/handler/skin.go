package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/middleware"
	"github.com/adhiadhi/oxeye-server/internal/render"
	"github.com/adhiadhi/oxeye-server/internal/service"
	"github.com/adhiadhi/oxeye-server/internal/store"
	"github.com/adhiadhi/oxeye-server/internal/util"
)

// SkinHandler stores uploaded skins and serves the derived images: rendered
// heads by texture hash and the per-server composite status image.
type SkinHandler struct {
	store        *store.Store
	status       *service.StatusService
	maxSkinBytes int64
}

func NewSkinHandler(st *store.Store, status *service.StatusService, maxSkinBytes int64) *SkinHandler {
	return &SkinHandler{store: st, status: status, maxSkinBytes: maxSkinBytes}
}

// RegisterAuthed mounts the endpoints that sit behind the API-key middleware.
func (h *SkinHandler) RegisterAuthed(r chi.Router) {
	r.Post("/skin", h.UploadSkin)
	r.Get("/status/image", h.StatusImage)
}

// RegisterPublic mounts the rendered-blob endpoints; a texture hash reveals
// nothing beyond the skin itself, so no authentication.
func (h *SkinHandler) RegisterPublic(r chi.Router) {
	r.Get("/head/{textureHash}", h.Head)
}

// POST /api/v1/skin
//
// The follow-up to a 202 from /join: base64 PNG skin keyed by texture hash.
// The player mapping update was deferred to here because player_skins has a
// foreign key into skins.
func (h *SkinHandler) UploadSkin(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())

	var req struct {
		Player      string  `json:"player"`
		TextureHash string  `json:"texture_hash"`
		SkinData    string  `json:"skin_data"`
		TextureURL  *string `json:"texture_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := util.ValidatePlayerName(req.Player); err != nil {
		writeError(w, err)
		return
	}
	if err := util.ValidateTextureHash(req.TextureHash); err != nil {
		writeError(w, err)
		return
	}

	skinData, err := base64.StdEncoding.DecodeString(req.SkinData)
	if err != nil {
		writeError(w, apperrors.ValidationError("Invalid base64 skin data"))
		return
	}
	if err := util.ValidateSkinData(skinData, h.maxSkinBytes); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	now := time.Now().Unix()

	if err := h.store.StoreSkin(ctx, req.TextureHash, req.TextureURL, skinData); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.UpdatePlayerSkin(ctx, req.Player, req.TextureHash, now); err != nil {
		writeError(w, err)
		return
	}

	// A skin that fails to render is still stored; the composite just keeps
	// using the fallback head for this player.
	headData, err := render.RenderHead(skinData)
	if err != nil {
		log.Error().Err(err).Str("textureHash", req.TextureHash).Msg("failed to render head from skin")
	} else if err := h.store.StoreRenderedHead(ctx, req.TextureHash, headData, now); err != nil {
		writeError(w, err)
		return
	}

	h.status.Enqueue(server.APIKeyHash)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/v1/head/{textureHash}
//
// Serves the rendered head, falling back to the default head when the hash is
// unknown. Heads are content-addressed, hence the immutable cache policy.
func (h *SkinHandler) Head(w http.ResponseWriter, r *http.Request) {
	textureHash := strings.TrimSuffix(chi.URLParam(r, "textureHash"), ".png")

	if err := util.ValidateTextureHash(textureHash); err != nil {
		writeError(w, err)
		return
	}

	data, err := h.store.GetRenderedHead(r.Context(), textureHash)
	if err != nil {
		log.Error().Err(err).Msg("failed to load rendered head")
	}
	if data == nil {
		data = encodeDefaultHead()
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, immutable, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GET /api/v1/status/image
//
// Serves the caller's composite roster image, rendering on demand when the
// cache is cold.
func (h *SkinHandler) StatusImage(w http.ResponseWriter, r *http.Request) {
	server := middleware.GetServer(r.Context())
	ctx := r.Context()

	data, err := h.store.GetStatusImage(ctx, server.APIKeyHash)
	if err != nil {
		log.Error().Err(err).Msg("failed to load status image")
	}
	if data == nil {
		if err := h.status.Recompute(ctx, server.APIKeyHash); err != nil {
			log.Error().Err(err).Msg("failed to render status image on demand")
		}
		data, _ = h.store.GetStatusImage(ctx, server.APIKeyHash)
	}
	if data == nil {
		// last resort so the endpoint always yields a valid PNG
		data, err = render.ComposeStatus(nil)
		if err != nil {
			log.Error().Err(err).Msg("failed to compose empty status image")
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=10")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func encodeDefaultHead() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, render.DefaultHead()); err != nil {
		log.Error().Err(err).Msg("failed to encode default head")
	}
	return buf.Bytes()
}
