// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"authsrv-go/internal/resource"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/authsrv/config.toml",
	"configs/config.toml",
}

// Missing-resource policies.
const (
	MissingNotFound = "not_found"
	MissingDrop     = "drop"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port     int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Scheme   string `kong:"help='Auth scheme: basic|cookie (overrides config).',env='AUTH_SCHEME'"`
	Root     string `kong:"help='Resource root directory (overrides config).',env='RESOURCE_ROOT'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Resources ResourcesConfig `toml:"resources"`
	Log       LogConfig       `toml:"log"`
	Admin     AdminConfig     `toml:"admin"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds settings of the TCP listener and its workers.
type ServerConfig struct {
	Host               string          `toml:"host"`
	Port               int             `toml:"port"` // 0 means "use default" (8000)
	BufferSize         int             `toml:"buffer_size"`
	KeepAlive          bool            `toml:"keep_alive"`
	ReadTimeoutSeconds int             `toml:"read_timeout_seconds"` // 0 blocks until the peer sends or closes
	MaxConnections     int             `toml:"max_connections"`      // 0 is unlimited
	ReuseAddr          *bool           `toml:"reuse_addr"`
	MissingResource    string          `toml:"missing_resource"`
	RateLimit          RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig throttles accepted connections, or admin requests per client IP.
type RateLimitConfig struct {
	Enabled              bool    `toml:"enabled"`
	ConnectionsPerSecond float64 `toml:"connections_per_second"`
	Burst                int     `toml:"burst"`
}

// AuthConfig selects the credential scheme and holds the user table.
type AuthConfig struct {
	Scheme string            `toml:"scheme"`
	Realm  string            `toml:"realm"`
	Users  map[string]string `toml:"users"`
}

// ResourcesConfig locates static content and named pages.
type ResourcesConfig struct {
	Root         string              `toml:"root"`
	RootPage     string              `toml:"root_page"`
	AuthPage     string              `toml:"auth_page"`
	NotFoundPage string              `toml:"not_found_page"`
	MIMETypes    []resource.MIMEType `toml:"mime_types"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AdminConfig holds the health/metrics HTTP listener settings.
type AdminConfig struct {
	Enabled     bool            `toml:"enabled"`
	Host        string          `toml:"host"`
	Port        int             `toml:"port"`
	MetricsPath string          `toml:"metrics_path"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/authsrv/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Scheme != "" {
		c.Auth.Scheme = cli.Scheme
	}
	if cli.Root != "" {
		c.Resources.Root = cli.Root
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be 0–65535; got %d", c.Admin.Port)
	}
	if c.Server.BufferSize < 0 {
		return fmt.Errorf("server.buffer_size must be non-negative; got %d", c.Server.BufferSize)
	}
	if c.Server.ReadTimeoutSeconds < 0 {
		return fmt.Errorf("server.read_timeout_seconds must be non-negative; got %d", c.Server.ReadTimeoutSeconds)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative; got %d", c.Server.MaxConnections)
	}
	if err := c.Server.RateLimit.validate("server.rate_limit"); err != nil {
		return err
	}
	if err := c.Admin.RateLimit.validate("admin.rate_limit"); err != nil {
		return err
	}

	switch c.Server.MissingResource {
	case MissingNotFound, MissingDrop, "":
		// valid
	default:
		return fmt.Errorf("server.missing_resource must be one of: %s, %s; got %q", MissingNotFound, MissingDrop, c.Server.MissingResource)
	}

	// Auth.
	switch strings.ToLower(c.Auth.Scheme) {
	case "basic", "cookie", "":
		// valid
	default:
		return fmt.Errorf("auth.scheme must be one of: basic, cookie; got %q", c.Auth.Scheme)
	}
	for user := range c.Auth.Users {
		if user == "" {
			return fmt.Errorf("auth.users contains an empty user name")
		}
		// Basic credentials split on the first ':', so such a user could never log in.
		if strings.Contains(user, ":") {
			return fmt.Errorf("auth.users: user name %q must not contain ':'", user)
		}
	}

	for i, m := range c.Resources.MIMETypes {
		if m.Suffix == "" || m.Type == "" {
			return fmt.Errorf("resources.mime_types[%d] needs both suffix and type", i)
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when the admin listener is enabled).
	if c.Admin.Enabled && c.Admin.MetricsPath != "" {
		p := c.Admin.MetricsPath
		if p[0] != '/' {
			return fmt.Errorf("admin.metrics_path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/healthz", "/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("admin.metrics_path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func (r RateLimitConfig) validate(section string) error {
	if r.Burst < 0 {
		return fmt.Errorf("%s.burst must be non-negative; got %d", section, r.Burst)
	}
	if r.Enabled && r.ConnectionsPerSecond <= 0 {
		return fmt.Errorf("%s.connections_per_second must be > 0 when rate limiting is enabled; got %v", section, r.ConnectionsPerSecond)
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BufferSize, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BufferSize == 0 {
		c.Server.BufferSize = 16384
	}
	if c.Server.ReuseAddr == nil {
		on := true
		c.Server.ReuseAddr = &on
	}
	if c.Server.MissingResource == "" {
		c.Server.MissingResource = MissingNotFound
	}
	for _, rl := range []*RateLimitConfig{&c.Server.RateLimit, &c.Admin.RateLimit} {
		if rl.Enabled && rl.Burst == 0 {
			rl.Burst = 1
		}
	}
	if c.Auth.Scheme == "" {
		c.Auth.Scheme = "cookie"
	}
	c.Auth.Scheme = strings.ToLower(c.Auth.Scheme)
	if c.Auth.Realm == "" {
		c.Auth.Realm = "authsrv"
	}
	if c.Auth.Users == nil {
		c.Auth.Users = map[string]string{}
	}
	if c.Resources.Root == "" {
		c.Resources.Root = "www"
	}
	if c.Resources.RootPage == "" {
		c.Resources.RootPage = "server.html"
	}
	if c.Resources.AuthPage == "" {
		c.Resources.AuthPage = "auth.html"
	}
	if c.Resources.NotFoundPage == "" {
		c.Resources.NotFoundPage = "404.html"
	}
	if len(c.Resources.MIMETypes) == 0 {
		c.Resources.MIMETypes = append([]resource.MIMEType(nil), resource.DefaultMIMETypes...)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Admin.Host == "" {
		c.Admin.Host = "127.0.0.1"
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 9090
	}
	if c.Admin.MetricsPath == "" {
		c.Admin.MetricsPath = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the admin listen address as host:port.
func (c *AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MIMETable returns the configured suffix table in order.
func (c *ResourcesConfig) MIMETable() resource.MIMETable {
	return resource.MIMETable(c.MIMETypes)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
// The file holds plaintext passwords.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
