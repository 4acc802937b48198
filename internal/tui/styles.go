package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Title lipgloss.Style
	BPM   lipgloss.Style
	Chord lipgloss.Style
	Muted lipgloss.Style

	// Status colors
	StatusIdle    lipgloss.Style
	StatusPlaying lipgloss.Style
	StatusPaused  lipgloss.Style

	// Beat indicators
	BeatOff    lipgloss.Style
	BeatOn     lipgloss.Style
	BeatAccent lipgloss.Style

	// Lane
	Labels  lipgloss.Style
	Grid    lipgloss.Style
	NowPost lipgloss.Style

	// Footer styles
	Event lipgloss.Style
	Error lipgloss.Style
}{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	BPM: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Chord: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")),

	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusPlaying: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("114")),

	StatusPaused: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	BeatOff: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	BeatOn: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	BeatAccent: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Labels: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Grid: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	NowPost: lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")),

	Event: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),
}
