package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/planet-dev/planet/internal/session"
)

// Color constants for the fixed palette.
const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	dimColor       = "#6B7280" // Gray
)

// Style variables for consistent TUI rendering.
var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// SelectedStyle highlights selected items in primary color.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// SuccessStyle renders success messages in green.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	// ErrorStyle renders error messages in red.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	// WarningStyle renders warning messages in amber.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// UserStyle labels the user's messages.
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor)).
			Bold(true)

	// AssistantStyle labels the assistant's messages.
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// BannerStyle renders the transient error banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(errorColor)).
			Padding(0, 1)

	// StatusBarStyle provides styling for the status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)
)

// Operation status icons (pre-rendered strings).
var (
	// IconIdle marks an operation that is not running.
	IconIdle = SuccessStyle.Render("✓")

	// IconInFlight marks an operation awaiting the server.
	IconInFlight = WarningStyle.Render("▸")

	// IconFailed marks an operation whose last attempt failed.
	IconFailed = ErrorStyle.Render("✗")

	// IconUnbound marks a session with no document.
	IconUnbound = DimStyle.Render("○")
)

// StatusIcon returns the icon for s.
func StatusIcon(s session.OpStatus) string {
	switch s {
	case session.StatusInFlight:
		return IconInFlight
	case session.StatusFailed:
		return IconFailed
	default:
		return IconIdle
	}
}
