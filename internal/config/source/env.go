package source

import (
	"os"
	"strconv"
	"time"

	"soc-console/internal/config/schema"
)

// EnvSource loads configuration from environment variables
// Variable names are PREFIX_KEY, e.g. SOC_CONSOLE_SERVER_URL
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Server
	s.loadString("SERVER_URL", &cfg.Server.URL)
	s.loadDuration("SERVER_API_TIMEOUT", &cfg.Server.APITimeout)
	s.loadDuration("SERVER_WEBSOCKET_TIMEOUT", &cfg.Server.WebSocketTimeout)
	s.loadDuration("SERVER_CACHE_EXPIRATION", &cfg.Server.CacheExpiration)
	s.loadBool("SERVER_INSECURE_SKIP_VERIFY", &cfg.Server.InsecureSkipVerify)
	s.loadSecret("SERVER_TOKEN", &cfg.Server.Token)

	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_FILE", &cfg.Log.File)

	// State
	s.loadString("STATE_TYPE", &cfg.State.Type)
	s.loadString("STATE_KEY_PREFIX", &cfg.State.KeyPrefix)
	s.loadString("STATE_REDIS_ADDR", &cfg.State.Redis.Addr)
	s.loadSecret("STATE_REDIS_PASSWORD", &cfg.State.Redis.Password)
	s.loadInt("STATE_REDIS_DB", &cfg.State.Redis.DB)

	// Output
	s.loadBool("OUTPUT_NO_COLOR", &cfg.Output.NoColor)

	return nil
}

func (s *EnvSource) getEnv(key string) (string, bool) {
	if v := os.Getenv(s.prefix + "_" + key); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadSecret(key string, target *schema.Secret) {
	if v, ok := s.getEnv(key); ok {
		*target = schema.Secret(v)
	}
}

func (s *EnvSource) loadBool(key string, target *bool) {
	if v, ok := s.getEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// loadDuration accepts Go durations ("15s") or bare milliseconds ("15000")
func (s *EnvSource) loadDuration(key string, target *time.Duration) {
	v, ok := s.getEnv(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*target = d
		return
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		*target = time.Duration(ms) * time.Millisecond
	}
}
