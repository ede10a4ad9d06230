package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("8")).
	Padding(0, 1)

// Panel frames lines in a rounded border.
func Panel(lines []string) string {
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// ProgressBar renders done/total as a bar of the given width.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 28
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}
