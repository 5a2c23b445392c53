package tui

import (
	"github.com/charmbracelet/lipgloss"

	"pixwap/internal/session"
)

var (
	okMarkStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	failMarkStyle = lipgloss.NewStyle().Foreground(ColorErr)
)

// RenderLogEntry formats one conversion outcome as a single line.
func RenderLogEntry(e session.LogEntry) string {
	if e.OK {
		return okMarkStyle.Render(padRight("ok", 4)) + " " +
			labelStyle.Render(e.Source+" -> "+e.Derived) + " " +
			dimStyle.Render("("+e.Detail+")")
	}
	return failMarkStyle.Render(padRight("fail", 4)) + " " +
		labelStyle.Render(e.Source) + " " +
		dimStyle.Render("("+e.Detail+")")
}
