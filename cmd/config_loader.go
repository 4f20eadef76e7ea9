package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oakwood-commons/kvedit/internal/config"
	"github.com/oakwood-commons/kvedit/pkg/settings"
)

// configLoader centralizes config loading so callers avoid duplicating merge logic.
type configLoader struct {
	defaultConfig func() ([]byte, error)
}

var cfgLoader = configLoader{defaultConfig: loadDefaultConfigYAML}

func loadMergedConfig(cfgPath string) (config.Config, error) {
	return cfgLoader.loadMergedConfig(cfgPath)
}

func loadDefaultConfigYAML() ([]byte, error) {
	data := config.DefaultYAML()
	if len(data) == 0 {
		return nil, fmt.Errorf("embedded default config is empty")
	}
	return data, nil
}

// loadMergedConfig layers the file at cfgPath (if any) over the embedded
// defaults and validates the result.
func (l configLoader) loadMergedConfig(cfgPath string) (config.Config, error) {
	defaultData, err := l.defaultConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("load default config: %w", err)
	}
	cfg, err := config.Parse(defaultData)
	if err != nil {
		return config.Config{}, fmt.Errorf("default config: %w", err)
	}

	if cfgPath != "" {
		fileCfg, err := config.ParseFile(cfgPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = config.Merge(cfg, fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		if cfgPath != "" {
			return config.Config{}, fmt.Errorf("%s: %w", cfgPath, err)
		}
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveConfigPath returns explicit if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/kvedit/config.yaml) or ~/.config/kvedit/config.yaml if present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}
