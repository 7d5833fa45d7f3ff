// Package store is the unified data layer: durable identity in SQLite, live
// rosters in the in-process presence cache. All external callers go through
// this API; it enforces that presence entries only exist for servers the
// durable tier knows about.
package store

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/database"
	apperrors "github.com/adhiadhi/oxeye-server/internal/errors"
	"github.com/adhiadhi/oxeye-server/internal/model"
	"github.com/adhiadhi/oxeye-server/internal/presence"
	"github.com/adhiadhi/oxeye-server/internal/repository"
)

type Store struct {
	db      *database.DB
	links   repository.PendingLinkRepository
	servers repository.ServerRepository
	blobs   repository.BlobRepository
	cache   *presence.Cache

	// onRosterChange is invoked after a successful presence mutation, outside
	// any lock. Used to kick off background status-image recomputation.
	onRosterChange func(apiKeyHash string)
}

// New builds a Store over an already-migrated database. linkTTLSeconds is
// the lifetime of pending connection codes. The presence cache starts empty;
// call PopulateCache to seed it from the servers table.
func New(db *database.DB, linkTTLSeconds int64) *Store {
	return &Store{
		db:      db,
		links:   repository.NewPendingLinkRepository(db, linkTTLSeconds),
		servers: repository.NewServerRepository(db),
		blobs:   repository.NewBlobRepository(db),
		cache:   presence.NewCache(),
	}
}

// Open connects to the database at path with the default code TTL, applies
// the schema, and pre-populates the presence cache.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := database.Connect(path)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, apperrors.Storage(err)
	}

	s := New(db, model.PendingLinkTTLSeconds)
	if err := s.PopulateCache(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// OnRosterChange registers the background recompute hook.
func (s *Store) OnRosterChange(fn func(apiKeyHash string)) {
	s.onRosterChange = fn
}

// PopulateCache seeds one empty, unsynced presence entry per linked server,
// so "linked but not yet synced since restart" is observable.
func (s *Store) PopulateCache(ctx context.Context) error {
	hashes, err := s.servers.ListAPIKeyHashes(ctx)
	if err != nil {
		return apperrors.Storage(err)
	}
	for _, hash := range hashes {
		s.cache.Register(hash)
	}
	log.Info().Int("count", len(hashes)).Msg("pre-populated presence cache with servers (awaiting sync)")
	return nil
}

// wrap converts unexpected engine errors into the opaque storage error;
// typed AppErrors pass through untouched.
func wrap(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Storage(err)
}

// ----------------------------------------------------------------------------
// Pending links
// ----------------------------------------------------------------------------

func (s *Store) CreatePendingLink(ctx context.Context, code string, guildID int64, serverName string, now int64) (*model.PendingLink, error) {
	link, err := s.links.Create(ctx, code, guildID, serverName, now)
	if err != nil {
		return nil, wrap(err)
	}
	log.Debug().Str("code", link.Code).Int64("guildId", link.GuildID).Str("serverName", link.ServerName).Msg("created pending link")
	return link, nil
}

func (s *Store) GetPendingLink(ctx context.Context, code string) (*model.PendingLink, error) {
	link, err := s.links.Find(ctx, code)
	return link, wrap(err)
}

func (s *Store) ConsumePendingLink(ctx context.Context, code string, now int64) (*model.PendingLink, error) {
	link, err := s.links.Consume(ctx, code, now)
	if err != nil {
		return nil, wrap(err)
	}
	log.Debug().Str("code", link.Code).Msg("consumed pending link")
	return link, nil
}

func (s *Store) CleanupExpiredLinks(ctx context.Context, now int64) (int64, error) {
	deleted, err := s.links.DeleteExpired(ctx, now)
	if err != nil {
		return 0, wrap(err)
	}
	if deleted > 0 {
		log.Debug().Int64("deleted", deleted).Msg("cleaned up expired pending links")
	}
	return deleted, nil
}

// ----------------------------------------------------------------------------
// Servers
// ----------------------------------------------------------------------------

func (s *Store) CreateServer(ctx context.Context, apiKeyHash, name string, guildID int64) (*model.Server, error) {
	server, err := s.servers.Create(ctx, apiKeyHash, name, guildID)
	if err != nil {
		return nil, wrap(err)
	}
	s.cache.Register(apiKeyHash)
	log.Debug().Str("name", server.Name).Int64("guildId", server.GuildID).Msg("created server")
	return server, nil
}

func (s *Store) GetServerByAPIKey(ctx context.Context, apiKeyHash string) (*model.Server, error) {
	server, err := s.servers.FindByAPIKeyHash(ctx, apiKeyHash)
	return server, wrap(err)
}

func (s *Store) GetServersByGuild(ctx context.Context, guildID int64) ([]model.Server, error) {
	servers, err := s.servers.FindByGuild(ctx, guildID)
	return servers, wrap(err)
}

func (s *Store) ServerNameExists(ctx context.Context, guildID int64, name string) (bool, error) {
	exists, err := s.servers.NameExists(ctx, guildID, name)
	return exists, wrap(err)
}

// DeleteServer unlinks a server by guild and name. Durable deletion runs
// first; the presence entry and cached status image go afterwards, so a
// concurrent reader can only ever observe "durable gone, presence lingering"
// and never the reverse.
func (s *Store) DeleteServer(ctx context.Context, guildID int64, name string) error {
	apiKeyHash, err := s.servers.DeleteByGuildAndName(ctx, guildID, name)
	if err != nil {
		return wrap(err)
	}
	s.cache.Remove(apiKeyHash)
	if err := s.blobs.DeleteStatusImage(ctx, apiKeyHash); err != nil {
		return wrap(err)
	}
	log.Debug().Int64("guildId", guildID).Msg("deleted server")
	return nil
}

// DeleteServerByAPIKey unlinks a server by its own credential (self
// disconnect). Same ordering as DeleteServer.
func (s *Store) DeleteServerByAPIKey(ctx context.Context, apiKeyHash string) error {
	if err := s.servers.DeleteByAPIKeyHash(ctx, apiKeyHash); err != nil {
		return wrap(err)
	}
	s.cache.Remove(apiKeyHash)
	if err := s.blobs.DeleteStatusImage(ctx, apiKeyHash); err != nil {
		return wrap(err)
	}
	log.Debug().Msg("deleted server by api key")
	return nil
}

// ----------------------------------------------------------------------------
// Online players
// ----------------------------------------------------------------------------

func (s *Store) requireServer(ctx context.Context, apiKeyHash string) error {
	exists, err := s.servers.Exists(ctx, apiKeyHash)
	if err != nil {
		return wrap(err)
	}
	if !exists {
		return apperrors.InvalidAPIKey()
	}
	return nil
}

func (s *Store) PlayerJoin(ctx context.Context, apiKeyHash, playerName string, now int64) error {
	if err := s.requireServer(ctx, apiKeyHash); err != nil {
		return err
	}
	s.cache.AddPlayer(apiKeyHash, playerName, now)
	log.Debug().Str("player", playerName).Msg("player joined")
	s.notifyRosterChange(apiKeyHash)
	return nil
}

func (s *Store) PlayerLeave(ctx context.Context, apiKeyHash, playerName string) error {
	if err := s.requireServer(ctx, apiKeyHash); err != nil {
		return err
	}
	s.cache.RemovePlayer(apiKeyHash, playerName)
	log.Debug().Str("player", playerName).Msg("player left")
	s.notifyRosterChange(apiKeyHash)
	return nil
}

func (s *Store) SyncPlayers(ctx context.Context, apiKeyHash string, players []string, now int64) error {
	if err := s.requireServer(ctx, apiKeyHash); err != nil {
		return err
	}

	roster := make([]presence.Player, 0, len(players))
	for _, p := range players {
		roster = append(roster, presence.Player{Name: p, JoinedAt: now})
	}
	s.cache.SyncPlayers(apiKeyHash, roster)
	log.Debug().Int("count", len(players)).Msg("synced players")
	s.notifyRosterChange(apiKeyHash)
	return nil
}

func (s *Store) notifyRosterChange(apiKeyHash string) {
	if s.onRosterChange != nil {
		s.onRosterChange(apiKeyHash)
	}
}

// GetOnlinePlayers returns the roster names, sorted. Servers never touched
// since boot yield an empty list.
func (s *Store) GetOnlinePlayers(ctx context.Context, apiKeyHash string) ([]string, error) {
	state, _ := s.cache.Snapshot(apiKeyHash)
	names := make([]string, 0, len(state.Players))
	for _, p := range state.Players {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

// IsServerSynced reports whether the server pushed any roster data since this
// process booted. Unknown identities are simply unsynced.
func (s *Store) IsServerSynced(apiKeyHash string) bool {
	return s.cache.Synced(apiKeyHash)
}

func (s *Store) IsServerSyncedByName(ctx context.Context, guildID int64, serverName string) (bool, error) {
	server, err := s.servers.FindByGuildAndName(ctx, guildID, serverName)
	if err != nil {
		return false, wrap(err)
	}
	if server == nil {
		return false, apperrors.NotFound("Server")
	}
	return s.IsServerSynced(server.APIKeyHash), nil
}

// GetServerSummaries joins the durable server list with live player counts.
func (s *Store) GetServerSummaries(ctx context.Context, guildID int64) ([]model.ServerSummary, error) {
	servers, err := s.servers.FindByGuild(ctx, guildID)
	if err != nil {
		return nil, wrap(err)
	}

	summaries := make([]model.ServerSummary, 0, len(servers))
	for _, server := range servers {
		summaries = append(summaries, model.ServerSummary{
			Name:        server.Name,
			PlayerCount: s.cache.PlayerCount(server.APIKeyHash),
		})
	}
	return summaries, nil
}

func (s *Store) GetServersWithPlayers(ctx context.Context, guildID int64) ([]model.ServerWithPlayers, error) {
	servers, err := s.servers.FindByGuild(ctx, guildID)
	if err != nil {
		return nil, wrap(err)
	}

	result := make([]model.ServerWithPlayers, 0, len(servers))
	for _, server := range servers {
		result = append(result, model.ServerWithPlayers{
			Name:    server.Name,
			Players: s.rosterFor(server.APIKeyHash),
		})
	}
	return result, nil
}

func (s *Store) GetServerWithPlayers(ctx context.Context, guildID int64, serverName string) (*model.ServerWithPlayers, error) {
	server, err := s.servers.FindByGuildAndName(ctx, guildID, serverName)
	if err != nil {
		return nil, wrap(err)
	}
	if server == nil {
		return nil, apperrors.NotFound("Server")
	}

	return &model.ServerWithPlayers{
		Name:    server.Name,
		Players: s.rosterFor(server.APIKeyHash),
	}, nil
}

// rosterFor snapshots a roster sorted by player name for stable output.
func (s *Store) rosterFor(apiKeyHash string) []model.PlayerInfo {
	state, _ := s.cache.Snapshot(apiKeyHash)
	players := make([]model.PlayerInfo, 0, len(state.Players))
	for _, p := range state.Players {
		players = append(players, model.PlayerInfo{PlayerName: p.Name, JoinedAt: p.JoinedAt})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].PlayerName < players[j].PlayerName })
	return players
}

// GetPlayersWithHeads pairs each online player with their current texture
// hash, for composite rendering.
func (s *Store) GetPlayersWithHeads(ctx context.Context, apiKeyHash string) ([]model.PlayerHead, error) {
	state, _ := s.cache.Snapshot(apiKeyHash)

	heads := make([]model.PlayerHead, 0, len(state.Players))
	for _, p := range state.Players {
		hash, err := s.blobs.GetPlayerTextureHash(ctx, p.Name)
		if err != nil {
			return nil, wrap(err)
		}
		heads = append(heads, model.PlayerHead{PlayerName: p.Name, TextureHash: hash})
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].PlayerName < heads[j].PlayerName })
	return heads, nil
}

// ReconcilePresence drops presence entries whose durable server no longer
// exists. Such entries can appear in the window between an existence check
// and a concurrent disconnect; they are harmless but worth reaping.
func (s *Store) ReconcilePresence(ctx context.Context) (int64, error) {
	var removed int64
	for _, hash := range s.cache.Keys() {
		exists, err := s.servers.Exists(ctx, hash)
		if err != nil {
			return removed, wrap(err)
		}
		if !exists {
			s.cache.Remove(hash)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("reconciled orphaned presence entries")
	}
	return removed, nil
}

// ----------------------------------------------------------------------------
// Skins, heads, status images
// ----------------------------------------------------------------------------

func (s *Store) SkinExists(ctx context.Context, textureHash string) (bool, error) {
	exists, err := s.blobs.SkinExists(ctx, textureHash)
	return exists, wrap(err)
}

func (s *Store) StoreSkin(ctx context.Context, textureHash string, textureURL *string, skinData []byte) error {
	if err := s.blobs.StoreSkin(ctx, textureHash, textureURL, skinData); err != nil {
		return wrap(err)
	}
	log.Debug().Str("textureHash", textureHash).Msg("stored skin")
	return nil
}

func (s *Store) GetSkinData(ctx context.Context, textureHash string) ([]byte, error) {
	data, err := s.blobs.GetSkinData(ctx, textureHash)
	return data, wrap(err)
}

func (s *Store) UpdatePlayerSkin(ctx context.Context, playerName, textureHash string, now int64) error {
	if err := s.blobs.UpdatePlayerSkin(ctx, playerName, textureHash, now); err != nil {
		return wrap(err)
	}
	log.Debug().Str("player", playerName).Str("textureHash", textureHash).Msg("updated player skin")
	return nil
}

func (s *Store) GetPlayerTextureHash(ctx context.Context, playerName string) (string, error) {
	hash, err := s.blobs.GetPlayerTextureHash(ctx, playerName)
	return hash, wrap(err)
}

func (s *Store) StoreRenderedHead(ctx context.Context, textureHash string, headData []byte, now int64) error {
	if err := s.blobs.StoreRenderedHead(ctx, textureHash, headData, now); err != nil {
		return wrap(err)
	}
	log.Debug().Str("textureHash", textureHash).Msg("stored rendered head")
	return nil
}

func (s *Store) GetRenderedHead(ctx context.Context, textureHash string) ([]byte, error) {
	data, err := s.blobs.GetRenderedHead(ctx, textureHash)
	return data, wrap(err)
}

func (s *Store) StoreStatusImage(ctx context.Context, apiKeyHash string, imageData []byte, now int64) error {
	if err := s.blobs.StoreStatusImage(ctx, apiKeyHash, imageData, now); err != nil {
		return wrap(err)
	}
	log.Debug().Msg("stored status image")
	return nil
}

func (s *Store) GetStatusImage(ctx context.Context, apiKeyHash string) ([]byte, error) {
	data, err := s.blobs.GetStatusImage(ctx, apiKeyHash)
	return data, wrap(err)
}
