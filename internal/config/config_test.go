package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaultIsValid(t *testing.T) {
	cfg, err := Parse(DefaultYAML())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "kvedit", cfg.App.Name)
	assert.Equal(t, "dark", cfg.UI.Theme.Default)
	assert.Equal(t, []string{"dark", "light", "mono"}, cfg.ThemeNames())
	assert.Equal(t, []string{"name", "Name"}, cfg.Editor.NameKeys)
	assert.Equal(t, []string{"color", "Color"}, cfg.Editor.ColorKeys)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "81", cfg.ActiveTheme().Accent)
}

func TestDefaultYAMLReturnsCopy(t *testing.T) {
	a := DefaultYAML()
	a[0] = '#'
	assert.NotEqual(t, a[0], DefaultYAML()[0])
}

func TestMerge(t *testing.T) {
	base, err := Parse(DefaultYAML())
	require.NoError(t, err)

	override, err := Parse([]byte(`
ui:
  theme:
    default: solar
  themes:
    dark:
      accent: "#ff8800"
    solar:
      accent: "136"
editor:
  name_keys: [title]
server:
  addr: ":9999"
  write_timeout: 1m
`))
	require.NoError(t, err)

	got := Merge(base, override)
	require.NoError(t, got.Validate())
	assert.Equal(t, "solar", got.UI.Theme.Default)
	assert.Equal(t, "#ff8800", got.UI.Themes["dark"].Accent)
	assert.Equal(t, "238", got.UI.Themes["dark"].Border)
	assert.Equal(t, "136", got.ActiveTheme().Accent)
	assert.Equal(t, []string{"title"}, got.Editor.NameKeys)
	assert.Equal(t, []string{"color", "Color"}, got.Editor.ColorKeys)
	assert.Equal(t, ":9999", got.Server.Addr)
	assert.Equal(t, time.Minute, got.Server.WriteTimeout)
	assert.Equal(t, 10*time.Second, got.Server.ReadTimeout)

	// base is not modified
	assert.Equal(t, "81", base.UI.Themes["dark"].Accent)
}

func TestValidate(t *testing.T) {
	base, err := Parse(DefaultYAML())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "no theme", mutate: func(c *Config) { c.UI.Theme.Default = "" }, want: "ui.theme.default"},
		{name: "unknown theme", mutate: func(c *Config) { c.UI.Theme.Default = "neon" }, want: `unknown theme "neon"`},
		{name: "no name keys", mutate: func(c *Config) { c.Editor.NameKeys = nil }, want: "name_keys"},
		{name: "no addr", mutate: func(c *Config) { c.Server.Addr = "" }, want: "server.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kvedit.yaml")
	require.NoError(t, os.WriteFile(p, []byte("app:\n  name: custom\n"), 0o600))

	cfg, err := ParseFile(p)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.App.Name)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte("app: [\n"), 0o600))
	_, err = ParseFile(p)
	require.Error(t, err)
}
