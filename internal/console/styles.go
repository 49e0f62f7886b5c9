package console

import "github.com/charmbracelet/lipgloss"

var (
	blue   = lipgloss.AdaptiveColor{Light: "#1E88E5", Dark: "#42A5F5"}
	green  = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}
	red    = lipgloss.AdaptiveColor{Light: "#E53935", Dark: "#FE5F86"}
	yellow = lipgloss.AdaptiveColor{Light: "#F9A825", Dark: "#FFD54F"}
	cyan   = lipgloss.AdaptiveColor{Light: "#00838F", Dark: "#4DD0E1"}
	gray   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}
)

var (
	dimStyle = lipgloss.NewStyle().Foreground(gray)

	promptStyle = lipgloss.NewStyle().Foreground(blue).Bold(true)

	errorTextStyle = lipgloss.NewStyle().Foreground(red)

	helpTitleStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true)

	boldStyle = lipgloss.NewStyle().Bold(true)
)

func panelStyle(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func panelTitle(title string, color lipgloss.TerminalColor) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(title)
}
