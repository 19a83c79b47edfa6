package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/constants"
)

// Config is the shader-lsp configuration file
type Config struct {
	Server   *ServerConfig `yaml:"server"`
	Analyzer *Settings     `yaml:"analyzer,omitempty"`
	Client   *ClientConfig `yaml:"client,omitempty"`
}

// ServerConfig contains the analyzer-side runtime settings
type ServerConfig struct {
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	OutboundTimeout    time.Duration `yaml:"outbound_timeout"`
	MaxConcurrentReads int           `yaml:"max_concurrent_reads"`
	ParseCacheBytes    int64         `yaml:"parse_cache_bytes"`
	LogLevel           string        `yaml:"log_level"`
	// LateResponseWindow is how long an abandoned request is remembered so
	// its answer is logged as late instead of unknown
	LateResponseWindow time.Duration `yaml:"late_response_window"`
}

// ClientConfig contains the editor-side settings used by the in-process
// client of the inspect command.
type ClientConfig struct {
	// Settings is answered verbatim to wgsl-analyzer/requestConfiguration
	Settings map[string]interface{} `yaml:"settings,omitempty"`
	// DenyPatterns are globs the client refuses to serve through readFile
	DenyPatterns []string `yaml:"deny_patterns,omitempty"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateDefaultConfig generates a default configuration file
func GenerateDefaultConfig(path string) error {
	return SaveConfig(GetDefaultConfig(), path)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", config.Server.RequestTimeout)
	}
	if config.Server.OutboundTimeout <= 0 {
		return fmt.Errorf("server.outbound_timeout must be positive, got %v", config.Server.OutboundTimeout)
	}
	if config.Server.MaxConcurrentReads < 1 {
		return fmt.Errorf("server.max_concurrent_reads must be at least 1, got %d", config.Server.MaxConcurrentReads)
	}
	if config.Server.ParseCacheBytes < 0 {
		return fmt.Errorf("server.parse_cache_bytes must not be negative")
	}
	if config.Server.LateResponseWindow < 0 {
		return fmt.Errorf("server.late_response_window must not be negative, got %v", config.Server.LateResponseWindow)
	}
	switch strings.ToLower(config.Server.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("server.log_level %q is not one of debug, info, warn, error", config.Server.LogLevel)
	}

	if config.Analyzer != nil {
		for key, source := range config.Analyzer.CustomImports {
			if key == "" {
				return fmt.Errorf("analyzer.custom_imports has an empty key")
			}
			if source == "" {
				common.CLILogger.Warn("Custom import %q has empty source", key)
			}
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	def := GetDefaultServerConfig()
	if c.Server == nil {
		c.Server = def
		return
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = def.RequestTimeout
	}
	if c.Server.OutboundTimeout == 0 {
		c.Server.OutboundTimeout = def.OutboundTimeout
	}
	if c.Server.MaxConcurrentReads == 0 {
		c.Server.MaxConcurrentReads = def.MaxConcurrentReads
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.LogLevel
	}
	if c.Server.LateResponseWindow == 0 {
		c.Server.LateResponseWindow = def.LateResponseWindow
	}
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(common.ConfigDir(), "config.yaml")
}

// GetDefaultServerConfig returns the default analyzer-side runtime settings
func GetDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		RequestTimeout:     constants.DefaultRequestTimeout,
		OutboundTimeout:    constants.OutboundRequestTimeout,
		MaxConcurrentReads: constants.DefaultMaxConcurrentReads,
		ParseCacheBytes:    constants.DefaultParseCacheBytes,
		LogLevel:           strings.ToLower(common.LogInfo.String()),
		LateResponseWindow: constants.LateResponseWindow,
	}
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	settings := DefaultSettings()
	return &Config{
		Server:   GetDefaultServerConfig(),
		Analyzer: &settings,
		Client:   &ClientConfig{},
	}
}

// AnalyzerDefaults returns the settings the server starts with, before the
// client has answered requestConfiguration.
func (c *Config) AnalyzerDefaults() Settings {
	if c == nil || c.Analyzer == nil {
		return DefaultSettings()
	}
	return c.Analyzer.Clone()
}

// ClientSettings returns the map answered to requestConfiguration. It is
// never nil.
func (c *Config) ClientSettings() map[string]interface{} {
	if c == nil || c.Client == nil || c.Client.Settings == nil {
		return map[string]interface{}{}
	}
	return c.Client.Settings
}
