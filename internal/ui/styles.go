package ui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#3B82F6"}
	accent  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A855F7"}
	success = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	warning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	danger  = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	border  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(accent).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary).Width(12)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	warningStyle  = lipgloss.NewStyle().Foreground(warning)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(danger)
	spinnerStyle  = lipgloss.NewStyle().Foreground(accent)
	feedbackStyle = lipgloss.NewStyle().Italic(true)
)

// scoreStyle colours a score by how badly the page did
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 7:
		return lipgloss.NewStyle().Bold(true).Foreground(success)
	case score >= 4:
		return lipgloss.NewStyle().Bold(true).Foreground(warning)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(danger)
	}
}
