// Package presence tracks online players per linked server. The data is
// ephemeral: servers resync their rosters after a reconnect, so nothing here
// survives a restart.
package presence

import (
	"hash/fnv"
	"sync"
)

// Player is one online player with their join timestamp.
type Player struct {
	Name     string
	JoinedAt int64
}

// ServerState is the roster of a single server. Roster order carries no
// meaning; removal swaps with the last element.
type ServerState struct {
	Players []Player
	// SyncedSinceBoot flips to true on the first roster mutation after this
	// process started and never flips back.
	SyncedSinceBoot bool
}

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	entries map[string]*ServerState
}

// Cache is a sharded concurrent map from api_key_hash to ServerState.
// Operations on different keys never contend; operations on the same key are
// mutually exclusive for the whole read-modify-write.
type Cache struct {
	shards [shardCount]shard
}

func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]*ServerState)
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.shards[h.Sum32()%shardCount]
}

// Register inserts an empty, unsynced entry if none exists. Used at boot
// pre-population and when a server first links.
func (c *Cache) Register(apiKeyHash string) {
	s := c.shardFor(apiKeyHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[apiKeyHash]; !ok {
		s.entries[apiKeyHash] = &ServerState{}
	}
}

// Remove drops the entry for a server, if present.
func (c *Cache) Remove(apiKeyHash string) {
	s := c.shardFor(apiKeyHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, apiKeyHash)
}

// AddPlayer records a join. A rejoin updates the join time in place. The
// entry is created if absent.
func (c *Cache) AddPlayer(apiKeyHash, name string, joinedAt int64) {
	s := c.shardFor(apiKeyHash)
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entries[apiKeyHash]
	if state == nil {
		state = &ServerState{}
		s.entries[apiKeyHash] = state
	}
	state.SyncedSinceBoot = true

	for i := range state.Players {
		if state.Players[i].Name == name {
			state.Players[i].JoinedAt = joinedAt
			return
		}
	}
	state.Players = append(state.Players, Player{Name: name, JoinedAt: joinedAt})
}

// RemovePlayer records a leave. Leaving a name never joined is a no-op, but
// still marks the entry synced. The entry is created if absent.
func (c *Cache) RemovePlayer(apiKeyHash, name string) {
	s := c.shardFor(apiKeyHash)
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entries[apiKeyHash]
	if state == nil {
		state = &ServerState{}
		s.entries[apiKeyHash] = state
	}
	state.SyncedSinceBoot = true

	for i := range state.Players {
		if state.Players[i].Name == name {
			last := len(state.Players) - 1
			state.Players[i] = state.Players[last]
			state.Players = state.Players[:last]
			return
		}
	}
}

// SyncPlayers replaces the whole roster. The entry is created if absent.
func (c *Cache) SyncPlayers(apiKeyHash string, players []Player) {
	s := c.shardFor(apiKeyHash)
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.entries[apiKeyHash]
	if state == nil {
		state = &ServerState{}
		s.entries[apiKeyHash] = state
	}
	state.Players = append([]Player(nil), players...)
	state.SyncedSinceBoot = true
}

// Snapshot returns a copy of the roster and the synced flag. The second
// return is false when the server has no entry.
func (c *Cache) Snapshot(apiKeyHash string) (ServerState, bool) {
	s := c.shardFor(apiKeyHash)
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.entries[apiKeyHash]
	if !ok {
		return ServerState{}, false
	}
	return ServerState{
		Players:         append([]Player(nil), state.Players...),
		SyncedSinceBoot: state.SyncedSinceBoot,
	}, true
}

// PlayerCount returns the roster size, zero for unknown servers.
func (c *Cache) PlayerCount(apiKeyHash string) int {
	s := c.shardFor(apiKeyHash)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.entries[apiKeyHash]; ok {
		return len(state.Players)
	}
	return 0
}

// Synced reports whether the server has synced since this process booted.
func (c *Cache) Synced(apiKeyHash string) bool {
	s := c.shardFor(apiKeyHash)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.entries[apiKeyHash]; ok {
		return state.SyncedSinceBoot
	}
	return false
}

// Keys returns all cached server identities.
func (c *Cache) Keys() []string {
	var keys []string
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		for k := range s.entries {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	return keys
}

// Len returns the number of cached servers.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
