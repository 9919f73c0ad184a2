package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle is for report titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SectionStyle is for section headings inside a report.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// UnavailableStyle marks fields that could not be read.
	UnavailableStyle = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	// HelpStyle is for key hints.
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// SelectedStyle highlights the cursor row in menus and lists.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorHighlight).
			Bold(true)

	ManagedBadge = lipgloss.NewStyle().
			Background(ColorManaged).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true)

	// BoxStyle frames the interactive screens.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorHighlight).
			Padding(1, 2)
)
