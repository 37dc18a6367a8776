// Package styles defines the visual styling for terminal output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// Color definitions.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2)

// LabelStyle styles the left column of key/value lines.
var LabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(14)

// ValueStyle styles values next to a label.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Bold(true)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// RTPHighStyle for ranges at or above 96%.
var RTPHighStyle = lipgloss.NewStyle().
	Foreground(Success)

// RTPMediumStyle for ranges between 94% and 96%.
var RTPMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

// RTPLowStyle for ranges below 94%.
var RTPLowStyle = lipgloss.NewStyle().
	Foreground(Error)

// GetRTPStyle returns the style for an RTP percentage.
func GetRTPStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 96:
		return RTPHighStyle
	case percent >= 94:
		return RTPMediumStyle
	default:
		return RTPLowStyle
	}
}

// GetStatusStyle returns the style used to label an outcome status.
func GetStatusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusCached:
		return InfoTextStyle
	case models.StatusFetched:
		return SuccessTextStyle
	case models.StatusNoMatch:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}
