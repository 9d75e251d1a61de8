package source

import (
	"time"

	"soc-console/internal/config/schema"
)

// Default values, matching the backend's built-in client parameters
const (
	DefaultAPITimeout       = 300 * time.Second
	DefaultWebSocketTimeout = 15 * time.Second
	DefaultCacheExpiration  = 300 * time.Second
	DefaultStateKeyPrefix   = "soc-console:"
)

// DefaultSource provides default configuration values
type DefaultSource struct{}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	cfg.Server.APITimeout = DefaultAPITimeout
	cfg.Server.WebSocketTimeout = DefaultWebSocketTimeout
	cfg.Server.CacheExpiration = DefaultCacheExpiration

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	cfg.State.Type = schema.StateTypeMemory
	cfg.State.KeyPrefix = DefaultStateKeyPrefix
	cfg.State.Redis.Addr = "localhost:6379"

	return nil
}
