package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pixwap/internal/session"
)

// recentLines is how many per-file outcomes the progress view keeps on
// screen while a batch runs.
const recentLines = 5

// ProgressModel renders a one-shot conversion batch: rolling status, a
// bar, and the most recent outcomes. It quits when the updates channel
// closes.
type ProgressModel struct {
	updates <-chan session.Event
	total   int
	started time.Time

	width    int
	status   string
	done     int
	failed   int
	recent   []string
	quitting bool
}

type progressDoneMsg struct{}

type progressEventMsg session.Event

func NewProgress(updates <-chan session.Event, total int) ProgressModel {
	return ProgressModel{updates: updates, total: total, started: time.Now()}
}

func (m ProgressModel) Init() tea.Cmd {
	return listenForEvents(m.updates)
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressEventMsg:
		ev := session.Event(msg)
		if ev.Status != "" {
			m.status = ev.Status
		}
		if ev.Kind == session.EventLog && ev.Entry != nil {
			if ev.Entry.OK {
				m.done++
			} else {
				m.failed++
			}
			m.recent = append([]string{RenderLogEntry(*ev.Entry)}, m.recent...)
			if len(m.recent) > recentLines {
				m.recent = m.recent[:recentLines]
			}
		}
		return m, listenForEvents(m.updates)
	case progressDoneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m ProgressModel) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done+m.failed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	lines := []string{
		titleStyle.Render("pixwap"),
		statusStyle.Render(m.status),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.done+m.failed, m.total)) +
			dimStyle.Render(fmt.Sprintf("  failed:%d", m.failed)),
		barStyle.Render(renderBar(barWidth, ratio)),
	}
	lines = append(lines, m.recent...)
	lines = append(lines, dimStyle.Render(fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Millisecond))))

	return strings.Join(lines, "\n")
}

func listenForEvents(updates <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-updates
		if !ok {
			return progressDoneMsg{}
		}
		return progressEventMsg(ev)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	statusStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle    = lipgloss.NewStyle().Foreground(ColorAccent)
)
