// Package tui provides the interactive duplicate resolution interface,
// built on Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the TUI.
var (
	primaryColor = lipgloss.Color("#6C91FF")
	accentColor  = lipgloss.Color("#2BD9C7")

	successColor = lipgloss.Color("#3FB950")
	warningColor = lipgloss.Color("#D29922")
	dangerColor  = lipgloss.Color("#F85149")

	mutedColor     = lipgloss.Color("#8B949E")
	subtleColor    = lipgloss.Color("#484F58")
	borderColor    = lipgloss.Color("#30363D")
	highlightColor = lipgloss.Color("#161B22")
)

// Container and text styles.
var (
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	dividerStyle = lipgloss.NewStyle().Foreground(borderColor)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	successTextStyle = lipgloss.NewStyle().Foreground(successColor)
)

// Duplicate group member list.
var (
	// selectedItemStyle highlights the member under the cursor.
	selectedItemStyle = lipgloss.NewStyle().
				Background(highlightColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))

	// keptStyle and droppedStyle mark what a recorded decision keeps
	// and lets go.
	keptStyle    = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	droppedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	fileSizeStyle = lipgloss.NewStyle().
			Width(10).
			Align(lipgloss.Right).
			Foreground(accentColor)

	cursorStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
)

// Cataloging progress panel.
var (
	progressFillStyle  = lipgloss.NewStyle().Foreground(successColor)
	progressEmptyStyle = lipgloss.NewStyle().Foreground(subtleColor)

	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Padding(0, 2)

	statsLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	statsValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
)

// Key hints along the bottom of each screen.
var (
	keyStyle     = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	keyDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// Confirmation dialog.
var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(warningColor).
			Padding(1, 2).
			Width(50)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(warningColor).
				Align(lipgloss.Center)

	dialogTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)

	activeButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(primaryColor).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	inactiveButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(subtleColor).
				Foreground(lipgloss.Color("#CCCCCC"))
)

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

// repeatChar repeats a character n times.
func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(char), n)
}

// truncatePath truncates a path to fit within maxLen, preserving the end.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-(maxLen-3):]
}

// padLeft pads a string to the left to reach the target width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return repeatChar(' ', width-len(s)) + s
}

// center centers a string within the given width.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	leftPad := (width - len(s)) / 2
	return repeatChar(' ', leftPad) + s + repeatChar(' ', width-len(s)-leftPad)
}
