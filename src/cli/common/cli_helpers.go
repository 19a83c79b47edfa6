package common

import (
	"strings"

	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/utils/configloader"
)

// LoadConfigForCLI loads configuration and applies its log level to the
// package loggers
func LoadConfigForCLI(configPath string) *config.Config {
	cfg := configloader.LoadOrDefault(configPath)
	common.SetGlobalLevel(common.ParseLogLevel(cfg.Server.LogLevel))
	return cfg
}

// EnableVerbose lowers every package logger to debug
func EnableVerbose(cfg *config.Config) {
	common.SetGlobalLevel(common.LogDebug)
	if cfg != nil && cfg.Server != nil {
		cfg.Server.LogLevel = strings.ToLower(common.LogDebug.String())
	}
}
