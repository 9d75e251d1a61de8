package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"soc-console/internal/config/schema"
)

func TestYAMLSource_NameAndPriority(t *testing.T) {
	s := NewYAMLSource("console.yaml")
	if s.Name() != "yaml" {
		t.Errorf("Name() = %q, want %q", s.Name(), "yaml")
	}
	if s.Priority() != PriorityYAML {
		t.Errorf("Priority() = %d, want %d", s.Priority(), PriorityYAML)
	}
}

func TestYAMLSource_LoadInto_NonExistent(t *testing.T) {
	cfg := &schema.Root{}
	if err := NewYAMLSource("/nonexistent/path/console.yaml").LoadInto(cfg); err != nil {
		t.Errorf("LoadInto() should not error on non-existent file, got %v", err)
	}
}

func TestYAMLSource_LoadInto_ValidFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "console.yaml")
	content := `
server:
  url: https://manager.example/
  websocket_timeout: 20s
  token: secret-token
log:
  level: debug
state:
  type: embedded
`
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := &schema.Root{}
	if err := NewDefaultSource().LoadInto(cfg); err != nil {
		t.Fatalf("defaults error = %v", err)
	}
	if err := NewYAMLSource(configFile).LoadInto(cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}

	if cfg.Server.URL != "https://manager.example/" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.WebSocketTimeout != 20*time.Second {
		t.Errorf("WebSocketTimeout = %v, want 20s", cfg.Server.WebSocketTimeout)
	}
	if cfg.Server.APITimeout != DefaultAPITimeout {
		t.Errorf("APITimeout = %v, want default preserved", cfg.Server.APITimeout)
	}
	if cfg.Server.Token.Value() != "secret-token" {
		t.Errorf("Token not loaded")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.State.Type != schema.StateTypeEmbedded || cfg.State.KeyPrefix != DefaultStateKeyPrefix {
		t.Errorf("State = %+v", cfg.State)
	}
}

func TestYAMLSource_LoadInto_Invalid(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(configFile, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := NewYAMLSource(configFile).LoadInto(&schema.Root{}); err == nil {
		t.Error("LoadInto() should fail on malformed YAML")
	}
}
