package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	app       lipgloss.Style
	viewport  lipgloss.Style
	streaming lipgloss.Style
	footer   lipgloss.Style
	inactive lipgloss.Style
	error    lipgloss.Style
	success  lipgloss.Style
	prompt   lipgloss.Style
	command  lipgloss.Style
	ascii    lipgloss.Style

	// markdown names the glamour style for finished reviews.
	markdown string
}

type ThemeName string

const (
	ThemeMatrix    ThemeName = "matrix"
	ThemeAmber     ThemeName = "amber"
	ThemeCyberpunk ThemeName = "cyberpunk"
	ThemeIceBlue   ThemeName = "ice"
	ThemeDracula   ThemeName = "dracula"
	ThemeFire      ThemeName = "fire"
	ThemeCyan      ThemeName = "cyan"
)

type ThemePalette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Inactive  lipgloss.Color
	Markdown  string
}

var palettes = map[ThemeName]ThemePalette{
	ThemeCyan: {
		Primary:   lipgloss.Color("51"),
		Secondary: lipgloss.Color("33"),
		Success:   lipgloss.Color("46"),
		Warning:   lipgloss.Color("226"),
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "dark",
	},
	ThemeMatrix: {
		Primary:   lipgloss.Color("82"),  // brightGreen
		Secondary: lipgloss.Color("46"),  // green
		Success:   lipgloss.Color("82"),  // brightGreen
		Warning:   lipgloss.Color("190"), // lime
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "dark",
	},
	ThemeAmber: {
		Primary:   lipgloss.Color("220"), // brightAmber
		Secondary: lipgloss.Color("214"), // amber
		Success:   lipgloss.Color("220"), // brightAmber
		Warning:   lipgloss.Color("208"), // orange
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "dark",
	},
	ThemeCyberpunk: {
		Primary:   lipgloss.Color("201"), // magenta
		Secondary: lipgloss.Color("141"), // purple
		Success:   lipgloss.Color("51"),  // cyan
		Warning:   lipgloss.Color("213"), // pink
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "pink",
	},
	ThemeIceBlue: {
		Primary:   lipgloss.Color("159"), // ice
		Secondary: lipgloss.Color("39"),  // blue
		Success:   lipgloss.Color("51"),  // cyan
		Warning:   lipgloss.Color("159"), // ice
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "tokyo-night",
	},
	ThemeDracula: {
		Primary:   lipgloss.Color("141"), // purple
		Secondary: lipgloss.Color("117"), // cyan
		Success:   lipgloss.Color("84"),  // green
		Warning:   lipgloss.Color("212"), // pink
		Error:     lipgloss.Color("203"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "dracula",
	},
	ThemeFire: {
		Primary:   lipgloss.Color("9"),   // brightRed
		Secondary: lipgloss.Color("196"), // red
		Success:   lipgloss.Color("226"), // yellow
		Warning:   lipgloss.Color("208"), // orange
		Error:     lipgloss.Color("196"),
		Inactive:  lipgloss.Color("240"),
		Markdown:  "dark",
	},
}

// GetTheme returns the styles of theme, or of the cyan theme when it is unknown.
func GetTheme(theme ThemeName) styles {
	if palette, ok := palettes[theme]; ok {
		return newStylesFromPalette(palette)
	}
	return newStylesFromPalette(palettes[ThemeCyan])
}

func ListThemes() []ThemeName {
	return []ThemeName{
		ThemeCyan,
		ThemeMatrix,
		ThemeAmber,
		ThemeCyberpunk,
		ThemeIceBlue,
		ThemeDracula,
		ThemeFire,
	}
}

// ParseTheme accepts theme names case-insensitively.
func ParseTheme(name string) (ThemeName, error) {
	theme := ThemeName(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := palettes[theme]; !ok {
		return "", fmt.Errorf("invalid theme %q, use --list-themes to see available options", name)
	}
	return theme, nil
}

func newStylesFromPalette(p ThemePalette) styles {
	return styles{
		app: lipgloss.NewStyle().Margin(0, 1),
		viewport: lipgloss.NewStyle().
			PaddingLeft(1),
		streaming: lipgloss.NewStyle().
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(p.Secondary).
			PaddingLeft(1),
		footer: lipgloss.NewStyle().
			MarginTop(1).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Primary).
			PaddingTop(1),
		inactive: lipgloss.NewStyle().Foreground(p.Inactive),
		error:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		success:  lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		prompt:   lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		command:  lipgloss.NewStyle().Foreground(p.Secondary).Italic(true),
		ascii:    lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		markdown: p.Markdown,
	}
}
