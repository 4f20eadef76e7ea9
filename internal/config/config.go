// Package config defines the kvedit configuration file and its embedded
// defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// Config is the merged configuration.
type Config struct {
	App    AppConfig    `yaml:"app"`
	UI     UIConfig     `yaml:"ui"`
	Editor EditorConfig `yaml:"editor"`
	Server ServerConfig `yaml:"server"`
}

// AppConfig carries display metadata.
type AppConfig struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// UIConfig selects and defines terminal themes.
type UIConfig struct {
	Theme  ThemeSelection         `yaml:"theme"`
	Themes map[string]ThemeConfig `yaml:"themes,omitempty"`
}

// ThemeSelection names the active theme.
type ThemeSelection struct {
	Default string `yaml:"default,omitempty"`
}

// ThemeConfig holds ANSI-256 codes or hex colors for one theme.
type ThemeConfig struct {
	Accent     string `yaml:"accent,omitempty"`
	Text       string `yaml:"text,omitempty"`
	Muted      string `yaml:"muted,omitempty"`
	Border     string `yaml:"border,omitempty"`
	SelectedFG string `yaml:"selected_fg,omitempty"`
	SelectedBG string `yaml:"selected_bg,omitempty"`
	Error      string `yaml:"error,omitempty"`
	Success    string `yaml:"success,omitempty"`
	ButtonFG   string `yaml:"button_fg,omitempty"`
	ButtonBG   string `yaml:"button_bg,omitempty"`
}

// EditorConfig controls which row keys the node modal edits.
type EditorConfig struct {
	NameKeys     []string `yaml:"name_keys,omitempty"`
	ColorKeys    []string `yaml:"color_keys,omitempty"`
	SummaryWidth int      `yaml:"summary_width,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
}

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Parse decodes a config document.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ParseFile reads and decodes path.
func ParseFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Merge layers override on top of base. Empty override fields keep the base
// value; a theme present in both is merged field by field.
func Merge(base, override Config) Config {
	out := base
	if override.App.Name != "" {
		out.App.Name = override.App.Name
	}
	if override.App.Description != "" {
		out.App.Description = override.App.Description
	}
	if override.UI.Theme.Default != "" {
		out.UI.Theme.Default = override.UI.Theme.Default
	}
	if len(override.UI.Themes) > 0 {
		themes := make(map[string]ThemeConfig, len(base.UI.Themes)+len(override.UI.Themes))
		for name, th := range base.UI.Themes {
			themes[name] = th
		}
		for name, th := range override.UI.Themes {
			themes[name] = mergeTheme(themes[name], th)
		}
		out.UI.Themes = themes
	}
	if len(override.Editor.NameKeys) > 0 {
		out.Editor.NameKeys = override.Editor.NameKeys
	}
	if len(override.Editor.ColorKeys) > 0 {
		out.Editor.ColorKeys = override.Editor.ColorKeys
	}
	if override.Editor.SummaryWidth > 0 {
		out.Editor.SummaryWidth = override.Editor.SummaryWidth
	}
	if override.Server.Addr != "" {
		out.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeout > 0 {
		out.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout > 0 {
		out.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.ShutdownTimeout > 0 {
		out.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	return out
}

func mergeTheme(base, override ThemeConfig) ThemeConfig {
	pick := func(b, o string) string {
		if strings.TrimSpace(o) != "" {
			return o
		}
		return b
	}
	return ThemeConfig{
		Accent:     pick(base.Accent, override.Accent),
		Text:       pick(base.Text, override.Text),
		Muted:      pick(base.Muted, override.Muted),
		Border:     pick(base.Border, override.Border),
		SelectedFG: pick(base.SelectedFG, override.SelectedFG),
		SelectedBG: pick(base.SelectedBG, override.SelectedBG),
		Error:      pick(base.Error, override.Error),
		Success:    pick(base.Success, override.Success),
		ButtonFG:   pick(base.ButtonFG, override.ButtonFG),
		ButtonBG:   pick(base.ButtonBG, override.ButtonBG),
	}
}

// Validate checks that the merged config is usable.
func (c Config) Validate() error {
	if c.UI.Theme.Default == "" {
		return fmt.Errorf("ui.theme.default is required")
	}
	if _, ok := c.UI.Themes[c.UI.Theme.Default]; !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", c.UI.Theme.Default, strings.Join(c.ThemeNames(), ", "))
	}
	if len(c.Editor.NameKeys) == 0 {
		return fmt.Errorf("editor.name_keys must not be empty")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// ThemeNames returns the configured theme names in sorted order.
func (c Config) ThemeNames() []string {
	names := make([]string, 0, len(c.UI.Themes))
	for name := range c.UI.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveTheme returns the selected theme.
func (c Config) ActiveTheme() ThemeConfig {
	return c.UI.Themes[c.UI.Theme.Default]
}
