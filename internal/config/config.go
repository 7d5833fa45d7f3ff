package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabasePath        string `env:"DATABASE_PATH" envDefault:"oxeye.db"`
	RedisURL            string `env:"REDIS_URL"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	LinkCodeTTLSeconds  int    `env:"LINK_CODE_TTL_SECONDS" envDefault:"600"`
	MaxSyncPlayers      int    `env:"MAX_SYNC_PLAYERS" envDefault:"1000"`
	MaxSkinBytes        int64  `env:"MAX_SKIN_BYTES" envDefault:"65536"`
	RateLimitPerMin     int    `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	RenderQueueCapacity int    `env:"RENDER_QUEUE_CAPACITY" envDefault:"256"`
}

func (c *Config) LinkCodeTTL() time.Duration {
	return time.Duration(c.LinkCodeTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.LinkCodeTTLSeconds <= 0 {
		return fmt.Errorf("LINK_CODE_TTL_SECONDS must be positive, got %d", c.LinkCodeTTLSeconds)
	}
	if c.MaxSyncPlayers <= 0 {
		return fmt.Errorf("MAX_SYNC_PLAYERS must be positive, got %d", c.MaxSyncPlayers)
	}
	if c.MaxSkinBytes <= 0 {
		return fmt.Errorf("MAX_SKIN_BYTES must be positive, got %d", c.MaxSkinBytes)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
