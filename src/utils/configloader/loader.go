package configloader

import (
	"gopkg.in/yaml.v3"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
)

// LoadOrDefault loads configPath when given, then the default config path,
// and falls back to the built-in defaults.
func LoadOrDefault(configPath string) *config.Config {
	if configPath != "" {
		if expanded, err := common.ExpandPath(configPath); err == nil {
			configPath = expanded
		}
		loaded, err := config.LoadConfig(configPath)
		if err == nil {
			return loaded
		}
		common.CLILogger.Warn("Failed to load config %s: %v", configPath, err)
	}

	defaultPath := config.GetDefaultConfigPath()
	if common.FileExists(defaultPath) {
		if loaded, err := config.LoadConfig(defaultPath); err == nil {
			return loaded
		} else {
			common.CLILogger.Warn("Ignoring invalid default config %s: %v", defaultPath, err)
		}
	}

	return config.GetDefaultConfig()
}

// LoadClientSettings reads a YAML settings file answered verbatim to
// requestConfiguration. An empty path yields the settings of cfg.
func LoadClientSettings(path string, cfg *config.Config) (map[string]interface{}, error) {
	if path == "" {
		return cfg.ClientSettings(), nil
	}
	data, err := common.SafeReadFile(path)
	if err != nil {
		return nil, err
	}
	settings := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}
	return settings, nil
}
