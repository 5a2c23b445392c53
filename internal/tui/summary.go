package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SummaryRow is one line of the closing batch summary. Warn marks rows
// whose value deserves attention, like a non-zero failure count.
type SummaryRow struct {
	Label string
	Value string
	Warn  bool
}

// RenderSummary draws the label/value table printed after a conversion
// batch finishes.
func RenderSummary(rows []SummaryRow) string {
	labelWidth, valueWidth := 0, 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)

	var b strings.Builder
	b.WriteString(hline + "\n")
	for _, row := range rows {
		style := valueStyle
		if row.Warn {
			style = warnValueStyle
		}
		b.WriteString(labelStyle.Render(padLeft(row.Label, labelWidth)))
		b.WriteString(" | ")
		b.WriteString(style.Render(padRight(row.Value, valueWidth)))
		b.WriteString("\n")
	}
	b.WriteString(hline)
	return b.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	labelStyle     = lipgloss.NewStyle().Foreground(ColorInk)
	valueStyle     = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	warnValueStyle = lipgloss.NewStyle().Foreground(ColorErr).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(ColorDim)
)
