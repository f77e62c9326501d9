package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with the built-in command table and sensible
// defaults. A bot running on this alone (no config file) still routes;
// the degraded EMPTY table only happens when the file exists but cannot
// be parsed, see Load.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		GreenAPI: GreenAPIConfig{
			APIBase: "https://api.green-api.com",
			SendRPM: 20,
		},
		Chatbot: ChatbotConfig{
			APIBase:        "https://batgpt.vercel.app/api/gpt",
			TimeoutMinutes: 5,
		},
		Video: VideoConfig{
			APIBase: "https://batgpt.vercel.app/api/alldl",
		},
		Shortener: ShortenerConfig{
			APIBase: "https://ice.bio/api",
		},
		Database: DatabaseConfig{
			SQLitePath: "~/.snapbot/snapbot.db",
		},
		Commands: CommandsConfig{
			Prefix: ".",
			Table:  DefaultCommandTable(),
		},
	}
}

// DefaultCommandTable mirrors the stock commands.json shipped with the bot.
func DefaultCommandTable() map[string]CommandSpec {
	return map[string]CommandSpec{
		"menu": {
			Aliases: []string{"menu", "help", "commands"},
			Handler: "menu",
		},
		"gpt": {
			Aliases: []string{"gpt", "chatgpt", "ai", "chatbot"},
			Handler: "chatbot",
		},
		"download": {
			Aliases: []string{"download", "video", "dl"},
			Handler: "download",
		},
		"shorten": {
			Aliases: []string{"short", "shorten", "shortlink"},
			Handler: "shorten",
		},
		"mylinks": {
			Aliases: []string{"mylinks", "my links", "links"},
			Handler: "mylinks",
		},
		"stats": {
			Aliases: []string{"stats", "linkstats"},
			Handler: "stats",
		},
		"checkwhatsapp": {
			Aliases: []string{"checkwhatsapp", "checkwa", "check whatsapp"},
			Handler: "checkwhatsapp",
		},
		"getavatar": {
			Aliases: []string{"getavatar", "avatar"},
			Handler: "getavatar",
		},
		"getcontactinfo": {
			Aliases: []string{"getcontactinfo", "contactinfo", "contact"},
			Handler: "getcontactinfo",
		},
		"dev": {
			Aliases:   []string{"dev", "devmenu"},
			Handler:   "dev",
			AdminOnly: true,
		},
		"alllinks": {
			Aliases:   []string{"alllinks", "all links"},
			Handler:   "alllinks",
			AdminOnly: true,
		},
		"videoonly": {
			Aliases:   []string{"videoonly", "video only"},
			Handler:   "videoonly",
			AdminOnly: true,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file yields defaults; a malformed file yields a degraded
// config (empty command table, "." prefix) so the bot keeps running.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		degraded := &Config{
			Gateway:  cfg.Gateway,
			GreenAPI: cfg.GreenAPI,
			Chatbot:  cfg.Chatbot,
			Commands: CommandsConfig{Prefix: ".", Table: map[string]CommandSpec{}},
			Database: cfg.Database,
		}
		degraded.applyEnvOverrides()
		return degraded, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets come from env only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("SNAPBOT_GREENAPI_INSTANCE_ID", &c.GreenAPI.InstanceID)
	envStr("SNAPBOT_GREENAPI_TOKEN", &c.GreenAPI.Token)
	envStr("SNAPBOT_ADMIN_NUMBER", &c.GreenAPI.AdminNumber)
	envStr("SNAPBOT_SHORTENER_API_KEY", &c.Shortener.APIKey)
	envStr("SNAPBOT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("SNAPBOT_SQLITE_PATH", &c.Database.SQLitePath)

	envStr("SNAPBOT_HOST", &c.Gateway.Host)
	if v := os.Getenv("SNAPBOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("SNAPBOT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("SNAPBOT_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	if v := os.Getenv("SNAPBOT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SNAPBOT_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// Save writes the config to a JSON file. Secrets carry `json:"-"` tags and
// never persist.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
