package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Prefix() != "." {
		t.Errorf("Prefix = %q", cfg.Prefix())
	}
	if len(cfg.CommandTable()) == 0 {
		t.Error("default command table empty")
	}
	if cfg.ChatTimeout() != 5*time.Minute {
		t.Errorf("ChatTimeout = %v", cfg.ChatTimeout())
	}
}

func TestLoadMalformedFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{this is not json at all"), 0600)

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("malformed config should return an error")
	}
	if cfg == nil {
		t.Fatal("malformed config should still return a usable config")
	}
	if cfg.Prefix() != "." {
		t.Errorf("degraded prefix = %q", cfg.Prefix())
	}
	if len(cfg.CommandTable()) != 0 {
		t.Errorf("degraded table should be empty, got %d entries", len(cfg.CommandTable()))
	}
}

func TestLoadJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{
		// comments are allowed
		gateway: {port: 9090},
		chatbot: {timeout_minutes: 10},
		commands: {prefix: "!"},
	}`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != 9090 || cfg.Prefix() != "!" {
		t.Errorf("port = %d, prefix = %q", cfg.Gateway.Port, cfg.Prefix())
	}
	if cfg.ChatTimeoutMinutes() != 10 {
		t.Errorf("timeout minutes = %d", cfg.ChatTimeoutMinutes())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SNAPBOT_GREENAPI_TOKEN", "sekret")
	t.Setenv("SNAPBOT_ADMIN_NUMBER", "+1999")
	t.Setenv("SNAPBOT_PORT", "7070")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GreenAPI.Token != "sekret" {
		t.Error("token env override not applied")
	}
	if cfg.AdminNumber() != "+1999" {
		t.Errorf("admin = %q", cfg.AdminNumber())
	}
	if cfg.Gateway.Port != 7070 {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
}

func TestSaveExcludesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.GreenAPI.Token = "supersecret"
	cfg.Shortener.APIKey = "alsosecret"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	for _, secret := range []string{"supersecret", "alsosecret"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("secret %q persisted to disk", secret)
		}
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCommandTableDeterministicOrder(t *testing.T) {
	cfg := Default()
	first := cfg.CommandTable()
	for i := 0; i < 5; i++ {
		again := cfg.CommandTable()
		if len(again) != len(first) {
			t.Fatal("table size changed between calls")
		}
		for j := range again {
			if again[j].Handler != first[j].Handler {
				t.Fatalf("table order changed: %v vs %v", again[j], first[j])
			}
		}
	}
}

func TestReplaceFrom(t *testing.T) {
	cfg := Default()
	fresh := Default()
	fresh.Commands.Prefix = "!"
	fresh.Chatbot.TimeoutMinutes = 42

	cfg.ReplaceFrom(fresh)
	if cfg.Prefix() != "!" || cfg.ChatTimeoutMinutes() != 42 {
		t.Errorf("ReplaceFrom did not apply: prefix %q, timeout %d", cfg.Prefix(), cfg.ChatTimeoutMinutes())
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandHome("~/x/y.db"); got != filepath.Join(home, "x", "y.db") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("absolute path changed: %q", got)
	}
}
