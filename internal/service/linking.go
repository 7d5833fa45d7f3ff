package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/audit"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/model"
	"github.com/adhiadhi/oxeye-server/internal/store"
	"github.com/adhiadhi/oxeye-server/internal/util"
)

// Excludes ambiguous characters (i, l, o, 0, 1).
const codeChars = "abcdefghjkmnpqrstuvwxyz23456789"

const codeSuffixLen = 6

// maxCodeAttempts bounds retries when a generated code collides.
const maxCodeAttempts = 10

// LinkingService owns the connection-code handshake: the bot layer creates
// codes, game servers claim them and receive an API key.
type LinkingService struct {
	store *store.Store
}

func NewLinkingService(st *store.Store) *LinkingService {
	return &LinkingService{store: st}
}

// CreateLink generates a fresh connection code for a guild. Fails with
// NAME_CONFLICT when the guild already has a server under that name.
func (s *LinkingService) CreateLink(ctx context.Context, guildID int64, serverName string, now int64) (*model.PendingLink, error) {
	if err := util.ValidateServerName(serverName); err != nil {
		return nil, err
	}

	var link *model.PendingLink
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code := generateCode()
		var err error
		link, err = s.store.CreatePendingLink(ctx, code, guildID, serverName, now)
		if err == nil {
			break
		}
		if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			continue // code collision, roll again
		}
		return nil, err
	}
	if link == nil {
		return nil, apperrors.Internal("Could not generate a unique connection code")
	}

	log.Info().
		Str("code", link.Code).
		Int64("guildId", link.GuildID).
		Str("serverName", link.ServerName).
		Msg("connection code created")

	audit.Log(ctx, audit.Event{
		Type:       audit.EventLinkCreated,
		GuildID:    link.GuildID,
		ServerName: link.ServerName,
	})

	return link, nil
}

// ConnectResult is the outcome of a successful claim: the raw API key exists
// only here and in the response that carries it to the game server.
type ConnectResult struct {
	APIKey string
	Server *model.Server
}

// Connect consumes a pending link and registers the server under a freshly
// minted API key.
func (s *LinkingService) Connect(ctx context.Context, code string, now int64) (*ConnectResult, error) {
	if err := util.ValidateCode(code); err != nil {
		return nil, err
	}

	link, err := s.store.ConsumePendingLink(ctx, code, now)
	if err != nil {
		return nil, err
	}

	apiKey, err := util.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal("Could not generate API key").WithCause(err)
	}

	server, err := s.store.CreateServer(ctx, util.HashAPIKey(apiKey), link.ServerName, link.GuildID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("serverName", server.Name).
		Int64("guildId", server.GuildID).
		Msg("server linked")

	return &ConnectResult{APIKey: apiKey, Server: server}, nil
}

// Disconnect unlinks a server by its API key hash.
func (s *LinkingService) Disconnect(ctx context.Context, apiKeyHash string) error {
	if err := s.store.DeleteServerByAPIKey(ctx, apiKeyHash); err != nil {
		return err
	}
	log.Info().Msg("server unlinked")
	return nil
}

func generateCode() string {
	chars := []byte(codeChars)
	suffix := make([]byte, codeSuffixLen)
	for i := range suffix {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		suffix[i] = chars[n.Int64()]
	}
	return fmt.Sprintf("%s%s", util.CodePrefix, string(suffix))
}
