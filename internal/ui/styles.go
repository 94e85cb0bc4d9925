package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mkguldan/speakerfilter/internal/backend"
	"github.com/mkguldan/speakerfilter/internal/notify"
)

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FD75F")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorBlue    = lipgloss.Color("#5FAFFF")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ConnectedDotStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	OfflineDotStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ProbingDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Width(12)

	LabelActiveStyle = lipgloss.NewStyle().
				Foreground(ColorCyan).
				Bold(true).
				Width(12)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	ChipStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDimGray).
			Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	GoodOptionStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	LowerRatingStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)
)

// Notification styles, one per severity.
var (
	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)
)

// SeverityStyle returns the toast style for sev.
func SeverityStyle(sev notify.Severity) lipgloss.Style {
	switch sev {
	case notify.SeveritySuccess:
		return SuccessStyle
	case notify.SeverityWarning:
		return WarningStyle
	case notify.SeverityError:
		return ErrorStyle
	}
	return InfoStyle
}

// SeverityIcon prefixes a toast.
func SeverityIcon(sev notify.Severity) string {
	switch sev {
	case notify.SeveritySuccess:
		return "✓"
	case notify.SeverityWarning:
		return "!"
	case notify.SeverityError:
		return "✗"
	}
	return "i"
}

// CategoryColor tints the tab and summary chip of a category.
func CategoryColor(c backend.Category) lipgloss.Color {
	switch c {
	case backend.Confirmed:
		return ColorGreen
	case backend.Intended:
		return ColorBlue
	case backend.Endorsed:
		return ColorMagenta
	}
	return ColorGray
}
