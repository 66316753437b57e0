package config

import "github.com/bobmcallan/generic-mcp/internal/common"

// Per-source defaults applied when a source leaves the field unset.
const (
	DefaultTimeoutSeconds = 30
	DefaultMaxResponseMB  = 50
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "generic-mcp",
			Port:      4241,
			Host:      "localhost",
			Transport: "http",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "generic_mcp",
		},
	}
}
