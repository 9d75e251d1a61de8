package source

import (
	"testing"
	"time"

	"soc-console/internal/config/schema"
)

func TestEnvSource_NameAndPriority(t *testing.T) {
	s := NewEnvSource("SOC_CONSOLE")
	if s.Name() != "env" {
		t.Errorf("Name() = %q, want %q", s.Name(), "env")
	}
	if s.Priority() != PriorityEnv {
		t.Errorf("Priority() = %d, want %d", s.Priority(), PriorityEnv)
	}
}

func TestEnvSource_LoadInto(t *testing.T) {
	t.Setenv("SOC_CONSOLE_SERVER_URL", "https://manager/")
	t.Setenv("SOC_CONSOLE_SERVER_WEBSOCKET_TIMEOUT", "5s")
	t.Setenv("SOC_CONSOLE_SERVER_API_TIMEOUT", "60000")
	t.Setenv("SOC_CONSOLE_SERVER_TOKEN", "tok")
	t.Setenv("SOC_CONSOLE_STATE_TYPE", "redis")
	t.Setenv("SOC_CONSOLE_STATE_REDIS_DB", "3")
	t.Setenv("SOC_CONSOLE_OUTPUT_NO_COLOR", "true")

	cfg := &schema.Root{}
	if err := NewEnvSource("SOC_CONSOLE").LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}

	if cfg.Server.URL != "https://manager/" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.WebSocketTimeout != 5*time.Second {
		t.Errorf("WebSocketTimeout = %v, want 5s", cfg.Server.WebSocketTimeout)
	}
	if cfg.Server.APITimeout != time.Minute {
		t.Errorf("APITimeout = %v, want 1m", cfg.Server.APITimeout)
	}
	if cfg.Server.Token.Value() != "tok" {
		t.Errorf("Token = %q, want tok", cfg.Server.Token.Value())
	}
	if cfg.State.Type != schema.StateTypeRedis || cfg.State.Redis.DB != 3 {
		t.Errorf("State = %+v", cfg.State)
	}
	if !cfg.Output.NoColor {
		t.Error("Output.NoColor should be true")
	}
}

func TestEnvSource_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("SOC_CONSOLE_STATE_REDIS_DB", "many")
	t.Setenv("SOC_CONSOLE_SERVER_CACHE_EXPIRATION", "soon")

	cfg := &schema.Root{}
	cfg.State.Redis.DB = 1
	cfg.Server.CacheExpiration = DefaultCacheExpiration

	if err := NewEnvSource("SOC_CONSOLE").LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if cfg.State.Redis.DB != 1 {
		t.Errorf("Redis.DB = %d, want 1", cfg.State.Redis.DB)
	}
	if cfg.Server.CacheExpiration != DefaultCacheExpiration {
		t.Errorf("CacheExpiration = %v", cfg.Server.CacheExpiration)
	}
}
