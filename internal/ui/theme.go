package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/xcp/internal/config"
)

// Catppuccin Mocha palette. Mutable so config can override it.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorTeal   = lipgloss.Color("#94e2d5")
	ColorMauve  = lipgloss.Color("#cba6f7")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorDim    = lipgloss.Color("#3a4055")
	ColorBright = lipgloss.Color("#cdd6f4")
)

var (
	styleSpinner lipgloss.Style
	styleName    lipgloss.Style
	styleLabel   lipgloss.Style
	styleCounts  lipgloss.Style
	styleTime    lipgloss.Style
	styleRate    lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	styleSpinner = lipgloss.NewStyle().Foreground(ColorMauve)
	styleName = lipgloss.NewStyle().Foreground(ColorBright)
	styleLabel = lipgloss.NewStyle().Foreground(ColorMuted).Width(8)
	styleCounts = lipgloss.NewStyle().Foreground(ColorBright)
	styleTime = lipgloss.NewStyle().Foreground(ColorMuted)
	styleRate = lipgloss.NewStyle().Foreground(ColorTeal)
}

// ApplyTheme overrides palette colors from config. Unset entries keep defaults.
func ApplyTheme(t config.ThemeConfig) {
	set := func(dst *lipgloss.Color, v *string) {
		if v != nil && *v != "" {
			*dst = lipgloss.Color(*v)
		}
	}
	set(&ColorGreen, t.Green)
	set(&ColorBlue, t.Blue)
	set(&ColorYellow, t.Yellow)
	set(&ColorTeal, t.Teal)
	set(&ColorMauve, t.Mauve)
	set(&ColorMuted, t.Muted)
	set(&ColorDim, t.Dim)
	set(&ColorBright, t.Bright)
	rebuildStyles()
}
