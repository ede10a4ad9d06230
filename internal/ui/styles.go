// Package ui holds the Lip Gloss styles and the plain list renderer used by
// non-interactive commands.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ------- shared styling (Lip Gloss) -------
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	AccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	MutedStyle   = lipgloss.NewStyle().Faint(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	SelectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	DoneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	HelpStyle     = lipgloss.NewStyle().Faint(true)

	BoxChecked   = "☑"
	BoxUnchecked = "☐"
)

func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, SuccessStyle.Render("✔ "+msg))
}

func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, ErrorStyle.Render("✖ "+msg))
}
