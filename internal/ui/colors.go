package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme names a color palette. It is persisted as the "theme" preference.
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// ThemeKey is the preference key holding the selected [Theme].
const ThemeKey = "theme"

// ParseTheme returns the stored theme, defaulting to [Dark].
func ParseTheme(s string) Theme {
	if Theme(s) == Light {
		return Light
	}
	return Dark
}

// Toggle switches between light and dark.
func (t Theme) Toggle() Theme {
	if t == Light {
		return Dark
	}
	return Light
}

var palettes = map[Theme]*Palette{
	Dark:  NewPalette("#7D56F4", "#04B575", "#FF5F5F", "#FFA500", "#626262", "#EEEEEE"),
	Light: NewPalette("#5A3FC0", "#027A4D", "#C00000", "#B36B00", "#8A8A8A", "#1A1A1A"),
}

// PaletteFor returns the palette for t.
func PaletteFor(t Theme) *Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Dark]
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	text     lipgloss.Style
	disabled lipgloss.Style
	button   lipgloss.Style
	inactive lipgloss.Style
	border   lipgloss.Style
}

func NewPalette(accent, success, failure, warning, muted, fg string) *Palette {
	return &Palette{
		title:    NewBold(accent).MarginBottom(1),
		ok:       NewBold(success),
		err:      NewBold(failure),
		warn:     NewStyle(warning),
		help:     NewEm(muted),
		text:     NewStyle(fg),
		disabled: NewStyle(muted).Faint(true),
		button:   NewBold(fg).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(accent)),
		inactive: NewStyle(muted).Faint(true).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(muted)),
		border:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color(muted)).Padding(0, 1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
