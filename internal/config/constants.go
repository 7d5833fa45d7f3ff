package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 60 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// MaxPlayerNameLen is the platform username limit.
const MaxPlayerNameLen = 16

// MaxServerNameLen bounds the user-provided server name.
const MaxServerNameLen = 100

// Default rate limiting
const DefaultRateLimitPerMin = 120

// DefaultMaxBodySize caps request bodies; skin uploads are the largest payloads.
const DefaultMaxBodySize = 1 << 20 // 1MB
