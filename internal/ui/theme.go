package ui

import (
	"image/color"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/kvedit/internal/config"
)

// Theme defines colors used across the editor views.
type Theme struct {
	Accent     color.Color // Paths, titles and focused borders
	Text       color.Color // Node content
	Muted      color.Color // Summaries and help text
	Border     color.Color // Unfocused borders
	SelectedFG color.Color // Selected row foreground
	SelectedBG color.Color // Selected row background
	Error      color.Color // Error status text
	Success    color.Color // Success status text
	ButtonFG   color.Color // Enabled button label
	ButtonBG   color.Color // Enabled button background
}

var (
	themeMu      sync.RWMutex
	currentTheme = fallbackDefaultTheme()
)

// fallbackDefaultTheme is used until SetTheme is called.
func fallbackDefaultTheme() Theme {
	return Theme{
		Accent:     lipgloss.Color("81"),
		Text:       lipgloss.Color("252"),
		Muted:      lipgloss.Color("245"),
		Border:     lipgloss.Color("238"),
		SelectedFG: lipgloss.Color("250"),
		SelectedBG: lipgloss.Color("24"),
		Error:      lipgloss.Color("203"),
		Success:    lipgloss.Color("114"),
		ButtonFG:   lipgloss.Color("236"),
		ButtonBG:   lipgloss.Color("81"),
	}
}

// ThemeFromConfig builds a Theme, keeping the fallback color for empty fields.
func ThemeFromConfig(cfg config.ThemeConfig) Theme {
	th := fallbackDefaultTheme()
	set := func(val string, dst *color.Color) {
		if v := strings.TrimSpace(val); v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(cfg.Accent, &th.Accent)
	set(cfg.Text, &th.Text)
	set(cfg.Muted, &th.Muted)
	set(cfg.Border, &th.Border)
	set(cfg.SelectedFG, &th.SelectedFG)
	set(cfg.SelectedBG, &th.SelectedBG)
	set(cfg.Error, &th.Error)
	set(cfg.Success, &th.Success)
	set(cfg.ButtonFG, &th.ButtonFG)
	set(cfg.ButtonBG, &th.ButtonBG)
	return th
}

// SetTheme overrides the global theme.
func SetTheme(t Theme) {
	themeMu.Lock()
	defer themeMu.Unlock()
	currentTheme = t
}

// CurrentTheme returns the active theme.
func CurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// styles are the lipgloss styles derived from a theme. With noColor set every
// style is plain apart from bold and reverse.
type styles struct {
	title    lipgloss.Style
	path     lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
	err      lipgloss.Style
	success  lipgloss.Style
	label    lipgloss.Style
	box      lipgloss.Style
	button   lipgloss.Style
	disabled lipgloss.Style
}

func newStyles(th Theme, noColor bool) styles {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).PaddingLeft(1).PaddingRight(1)
	if noColor {
		return styles{
			title:    lipgloss.NewStyle().Bold(true),
			path:     lipgloss.NewStyle(),
			text:     lipgloss.NewStyle(),
			muted:    lipgloss.NewStyle(),
			selected: lipgloss.NewStyle().Reverse(true),
			err:      lipgloss.NewStyle().Bold(true),
			success:  lipgloss.NewStyle(),
			label:    lipgloss.NewStyle().Bold(true),
			box:      box,
			button:   lipgloss.NewStyle().Reverse(true),
			disabled: lipgloss.NewStyle(),
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Foreground(th.Accent).Bold(true),
		path:     lipgloss.NewStyle().Foreground(th.Accent),
		text:     lipgloss.NewStyle().Foreground(th.Text),
		muted:    lipgloss.NewStyle().Foreground(th.Muted),
		selected: lipgloss.NewStyle().Foreground(th.SelectedFG).Background(th.SelectedBG),
		err:      lipgloss.NewStyle().Foreground(th.Error),
		success:  lipgloss.NewStyle().Foreground(th.Success),
		label:    lipgloss.NewStyle().Foreground(th.Muted).Bold(true),
		box:      box.BorderForeground(th.Accent),
		button:   lipgloss.NewStyle().Foreground(th.ButtonFG).Background(th.ButtonBG).Bold(true),
		disabled: lipgloss.NewStyle().Foreground(th.Muted).Faint(true),
	}
}

// renderButton draws a bracketed button label.
func (s styles) renderButton(label string, enabled bool) string {
	text := "[ " + label + " ]"
	if !enabled {
		return s.disabled.Render(text)
	}
	return s.button.Render(text)
}
