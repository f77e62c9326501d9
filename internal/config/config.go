package config

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config is the root configuration for the SnapBot gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	GreenAPI  GreenAPIConfig  `json:"green_api"`
	Chatbot   ChatbotConfig   `json:"chatbot"`
	Video     VideoConfig     `json:"video,omitempty"`
	Shortener ShortenerConfig `json:"shortener,omitempty"`
	Commands  CommandsConfig  `json:"commands"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	mu        sync.RWMutex
}

// GatewayConfig configures the webhook HTTP listener.
type GatewayConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	RateLimitRPM int    `json:"rate_limit_rpm,omitempty"` // per-chat webhook cap, 0 = default
}

// GreenAPIConfig configures the WhatsApp gateway (Green API).
// Token is NEVER read from the config file — only from env SNAPBOT_GREENAPI_TOKEN.
type GreenAPIConfig struct {
	APIBase     string `json:"api_base,omitempty"` // default https://api.green-api.com
	InstanceID  string `json:"instance_id"`
	Token       string `json:"-"` // from env SNAPBOT_GREENAPI_TOKEN only
	AdminNumber string `json:"admin_number"`
	SendRPM     int    `json:"send_rpm,omitempty"` // outbound send rate limit, 0 = default
}

// ChatbotConfig configures the conversational AI collaborator.
type ChatbotConfig struct {
	APIBase        string `json:"api_base,omitempty"`
	TimeoutMinutes int    `json:"timeout_minutes,omitempty"` // AI-mode inactivity timeout
}

// VideoConfig configures the video downloader collaborator.
type VideoConfig struct {
	APIBase string `json:"api_base,omitempty"`
}

// ShortenerConfig configures the link shortener collaborator.
// APIKey comes from env SNAPBOT_SHORTENER_API_KEY only.
type ShortenerConfig struct {
	APIBase string `json:"api_base,omitempty"`
	APIKey  string `json:"-"`
}

// DatabaseConfig selects the store backend. PostgresDSN is only read from
// env SNAPBOT_POSTGRES_DSN; when empty the bot runs on SQLite.
type DatabaseConfig struct {
	SQLitePath  string `json:"sqlite_path,omitempty"`
	PostgresDSN string `json:"-"`
}

// TelemetryConfig configures optional OpenTelemetry OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`     // e.g. "localhost:4317"
	Protocol    string `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool   `json:"insecure,omitempty"`     // skip TLS (local collectors)
	ServiceName string `json:"service_name,omitempty"` // default "snapbot"
}

// CommandsConfig is the alias table plus the prefix character.
type CommandsConfig struct {
	Prefix string                 `json:"prefix,omitempty"`
	Table  map[string]CommandSpec `json:"table,omitempty"`
}

// CommandSpec declares one logical command in the config file.
type CommandSpec struct {
	Aliases   []string `json:"aliases"`
	Handler   string   `json:"handler"`
	AdminOnly bool     `json:"admin_only,omitempty"`
}

// Prefix returns the command prefix character, defaulting to ".".
func (c *Config) Prefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Commands.Prefix == "" {
		return "."
	}
	return c.Commands.Prefix
}

// CommandTable returns the command specs in deterministic (name-sorted)
// order. The order matters: fuzzy matching breaks distance ties by table
// iteration order, which must be stable across reloads.
func (c *Config) CommandTable() []CommandSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.Commands.Table))
	for name := range c.Commands.Table {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]CommandSpec, 0, len(names))
	for _, name := range names {
		spec := c.Commands.Table[name]
		if len(spec.Aliases) == 0 {
			spec.Aliases = []string{name}
		}
		specs = append(specs, spec)
	}
	return specs
}

// ChatTimeout returns the AI-mode inactivity timeout.
func (c *Config) ChatTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	minutes := c.Chatbot.TimeoutMinutes
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// ChatTimeoutMinutes returns the configured timeout in whole minutes,
// for use in user-facing notices.
func (c *Config) ChatTimeoutMinutes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Chatbot.TimeoutMinutes <= 0 {
		return 5
	}
	return c.Chatbot.TimeoutMinutes
}

// AdminNumber returns the administrator phone number.
func (c *Config) AdminNumber() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GreenAPI.AdminNumber
}

// SetAdminNumber records the admin number (set from the instance owner's
// number at startup when not configured explicitly).
func (c *Config) SetAdminNumber(number string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GreenAPI.AdminNumber = number
}

// ListenAddr returns the host:port the gateway binds to.
func (c *Config) ListenAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s:%d", c.Gateway.Host, c.Gateway.Port)
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// Used by the config watcher on hot reload.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway = src.Gateway
	c.GreenAPI = src.GreenAPI
	c.Chatbot = src.Chatbot
	c.Video = src.Video
	c.Shortener = src.Shortener
	c.Commands = src.Commands
	c.Database = src.Database
	c.Telemetry = src.Telemetry
}
