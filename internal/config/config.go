package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/spec"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	Logging common.LoggingConfig `toml:"logging"`
	Metrics MetricsConfig        `toml:"metrics"`
	// API is the single-source form: `[api]` instead of `[[sources]]`.
	API     *SourceConfig  `toml:"api"`
	Sources []SourceConfig `toml:"sources"`
}

// ServerConfig contains MCP and HTTP server settings.
type ServerConfig struct {
	Name      string `toml:"name"`
	Port      int    `toml:"port"`
	Host      string `toml:"host"`
	Transport string `toml:"transport"` // http or stdio
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// SourceConfig describes one REST API whose description is turned into tools.
type SourceConfig struct {
	Name           string            `toml:"name"`
	Enabled        *bool             `toml:"enabled"`
	OpenAPIFile    string            `toml:"openapi_file"`
	OpenAPIURL     string            `toml:"openapi_url"`
	DocsURL        string            `toml:"docs_url"`
	BaseURL        string            `toml:"base_url"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	RateLimit      float64           `toml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst      int               `toml:"rate_burst"`
	MaxResponseMB  int               `toml:"max_response_mb"`
	Headers        map[string]string `toml:"headers"`
	Tools          ToolsConfig       `toml:"tools"`
}

// ToolsConfig is the per-source tool generation policy.
type ToolsConfig struct {
	IncludeAll      *bool    `toml:"include_all"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	IncludeTags     []string `toml:"include_tags"`
	ExcludeTags     []string `toml:"exclude_tags"`
	Prefix          string   `toml:"prefix"`
	Case            string   `toml:"case"` // snake, camel, kebab, preserve
	SimplifiedNames bool     `toml:"simplified_names"`
}

// IsEnabled reports whether the source should be loaded. Sources are enabled unless disabled explicitly.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Timeout returns the per-request timeout for the source.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// MaxResponseBytes returns the response body cap for the source.
func (s SourceConfig) MaxResponseBytes() int64 {
	return int64(s.MaxResponseMB) << 20
}

// IncludeAllEndpoints reports whether every endpoint is a candidate before exclusion.
func (t ToolsConfig) IncludeAllEndpoints() bool {
	return t.IncludeAll == nil || *t.IncludeAll
}

// EnabledSources returns the sources that will be loaded, in configuration order.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if config.API != nil {
		config.Sources = append([]SourceConfig{*config.API}, config.Sources...)
		config.API = nil
	}

	applyEnvOverrides(config)
	finalizeSources(config)

	return config, nil
}

// applyEnvOverrides applies GENERIC_MCP_* environment variable overrides to config.
// Source overrides target the first configured source, creating one when none exists.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("GENERIC_MCP_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("GENERIC_MCP_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if transport := os.Getenv("GENERIC_MCP_TRANSPORT"); transport != "" {
		config.Server.Transport = transport
	}
	if level := os.Getenv("GENERIC_MCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("GENERIC_MCP_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	sourceEnv := map[string]func(*SourceConfig, string){
		"GENERIC_MCP_OPENAPI_FILE": func(s *SourceConfig, v string) { s.OpenAPIFile = v },
		"GENERIC_MCP_OPENAPI_URL":  func(s *SourceConfig, v string) { s.OpenAPIURL = v },
		"GENERIC_MCP_DOCS_URL":     func(s *SourceConfig, v string) { s.DocsURL = v },
		"GENERIC_MCP_BASE_URL":     func(s *SourceConfig, v string) { s.BaseURL = v },
		"GENERIC_MCP_TOOL_PREFIX":  func(s *SourceConfig, v string) { s.Tools.Prefix = v },
	}
	for _, key := range []string{"GENERIC_MCP_OPENAPI_FILE", "GENERIC_MCP_OPENAPI_URL", "GENERIC_MCP_DOCS_URL", "GENERIC_MCP_BASE_URL", "GENERIC_MCP_TOOL_PREFIX"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if len(config.Sources) == 0 {
			config.Sources = append(config.Sources, SourceConfig{Name: "default"})
		}
		sourceEnv[key](&config.Sources[0], v)
	}
	if timeout := os.Getenv("GENERIC_MCP_TIMEOUT_SECONDS"); timeout != "" && len(config.Sources) > 0 {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Sources[0].TimeoutSeconds = t
		}
	}
}

// finalizeSources fills per-source defaults and expands ${VAR} references.
func finalizeSources(config *Config) {
	for i := range config.Sources {
		s := &config.Sources[i]
		if s.Name == "" {
			if i == 0 {
				s.Name = "default"
			} else {
				s.Name = fmt.Sprintf("source-%d", i+1)
			}
		}
		if s.TimeoutSeconds == 0 {
			s.TimeoutSeconds = DefaultTimeoutSeconds
		}
		if s.MaxResponseMB == 0 {
			s.MaxResponseMB = DefaultMaxResponseMB
		}
		if s.RateLimit > 0 && s.RateBurst <= 0 {
			s.RateBurst = 1
		}
		if s.Tools.Case == "" {
			s.Tools.Case = "snake"
		}
		s.OpenAPIFile = ExpandEnv(s.OpenAPIFile)
		s.OpenAPIURL = ExpandEnv(s.OpenAPIURL)
		s.DocsURL = ExpandEnv(s.DocsURL)
		s.BaseURL = ExpandEnv(s.BaseURL)
		for k, v := range s.Headers {
			s.Headers[k] = ExpandEnv(v)
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, transport string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if transport != "" {
		config.Server.Transport = transport
	}
}

// Validate checks the configuration for settings that cannot produce a working catalog.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "http", "stdio":
	default:
		return invalidf("server.transport must be http or stdio, got %q", c.Server.Transport)
	}
	if c.Server.Transport == "http" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return invalidf("server.port %d out of range", c.Server.Port)
	}

	if len(c.EnabledSources()) == 0 {
		return invalidf("no enabled sources configured")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name] {
			return invalidf("duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if !s.IsEnabled() {
			continue
		}
		if s.OpenAPIFile == "" && s.OpenAPIURL == "" && s.DocsURL == "" {
			return invalidf("source %q: one of openapi_file, openapi_url or docs_url is required", s.Name)
		}
		if s.TimeoutSeconds < 0 {
			return invalidf("source %q: timeout_seconds must not be negative", s.Name)
		}
		if s.RateLimit < 0 {
			return invalidf("source %q: rate_limit must not be negative", s.Name)
		}
		switch strings.ToLower(s.Tools.Case) {
		case "snake", "camel", "kebab", "preserve":
		default:
			return invalidf("source %q: unknown tools.case %q", s.Name, s.Tools.Case)
		}
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", spec.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
