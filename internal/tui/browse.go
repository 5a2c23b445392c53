package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pixwap/internal/scan"
	"pixwap/internal/session"
	"pixwap/internal/watch"
	"pixwap/pkg/imgutil"
)

// logPanelLines caps how much of the conversion log the browse view
// shows; the session retains more.
const logPanelLines = 8

// BrowseModel is the interactive view over one directory session: the
// inventory table, the rolling status line and the conversion log, with
// keys to convert either way and to rescan. File watcher hints show up
// as a suggestion only; nothing rescans without a keypress.
type BrowseModel struct {
	sess    *session.Session
	updates <-chan session.Event
	changes <-chan watch.Change

	width    int
	height   int
	stale    bool
	quitting bool
}

type browseEventMsg session.Event

type browseClosedMsg struct{}

type fsChangeMsg struct{}

type batchDoneMsg struct {
	err error
}

type rescanDoneMsg struct {
	err error
}

// NewBrowse wires the model to a session and an optional watcher change
// feed (nil is fine; the stale hint just never fires).
func NewBrowse(sess *session.Session, updates <-chan session.Event, changes <-chan watch.Change) BrowseModel {
	return BrowseModel{sess: sess, updates: updates, changes: changes}
}

func (m BrowseModel) Init() tea.Cmd {
	cmds := []tea.Cmd{listenSession(m.updates), m.rescanCmd()}
	if m.changes != nil {
		cmds = append(cmds, listenChanges(m.changes))
	}
	return tea.Batch(cmds...)
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case browseEventMsg:
		return m, listenSession(m.updates)
	case browseClosedMsg:
		return m, nil
	case fsChangeMsg:
		// Only worth surfacing when idle; a running batch rescans on
		// its own anyway.
		snap := m.sess.Snapshot()
		if !snap.Scanning && !snap.Converting {
			m.stale = true
		}
		return m, listenChanges(m.changes)
	case rescanDoneMsg, batchDoneMsg:
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	default:
		return m, nil
	}
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	}

	snap := m.sess.Snapshot()
	if snap.Scanning || snap.Converting {
		return m, nil
	}

	switch msg.String() {
	case "r":
		m.stale = false
		return m, m.rescanCmd()
	case "w":
		m.stale = false
		return m, m.convertCmd(session.PNGToWebP)
	case "p":
		m.stale = false
		return m, m.convertCmd(session.WebPToPNG)
	}
	return m, nil
}

func (m BrowseModel) rescanCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		return rescanDoneMsg{err: sess.Rescan(context.Background())}
	}
}

func (m BrowseModel) convertCmd(d session.Direction) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		_, err := sess.Convert(context.Background(), d)
		return batchDoneMsg{err: err}
	}
}

func (m BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	snap := m.sess.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("pixwap") + dimStyle.Render("  "+snap.Dir) + "\n")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d PNG, %d WebP", snap.PNGCount, snap.WebPCount)) + "\n\n")

	b.WriteString(renderEntries(snap.Entries, m.tableRows()))
	b.WriteString("\n")

	b.WriteString(statusLineStyle.Render(snap.Status) + "\n")
	if m.stale {
		b.WriteString(staleStyle.Render("Directory changed on disk; press r to rescan") + "\n")
	}

	if len(snap.Log) > 0 {
		b.WriteString("\n" + dimStyle.Render("Recent conversions") + "\n")
		shown := snap.Log
		if len(shown) > logPanelLines {
			shown = shown[:logPanelLines]
		}
		for _, e := range shown {
			b.WriteString(RenderLogEntry(e) + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render("w convert PNG to WebP   p convert WebP to PNG   r rescan   q quit"))
	return b.String()
}

// tableRows budgets entry rows against the terminal height, leaving room
// for the chrome around the table.
func (m BrowseModel) tableRows() int {
	if m.height == 0 {
		return 20
	}
	rows := m.height - logPanelLines - 9
	if rows < 5 {
		rows = 5
	}
	return rows
}

func renderEntries(entries []scan.Entry, maxRows int) string {
	if len(entries) == 0 {
		return dimStyle.Render("  (no images)") + "\n"
	}

	nameWidth := len("NAME")
	for _, e := range entries {
		if len(e.Name) > nameWidth {
			nameWidth = len(e.Name)
		}
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  %-5s  %10s  %s", padRight("NAME", nameWidth), "TYPE", "SIZE", "MODIFIED")) + "\n")

	shown := entries
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for _, e := range shown {
		kind := imgutil.KindForMIME(e.MIME)
		style := pngStyle
		if kind == imgutil.KindWebP {
			style = webpStyle
		}
		b.WriteString("  " + labelStyle.Render(padRight(e.Name, nameWidth)) +
			"  " + style.Render(padRight(kind.String(), 5)) +
			"  " + labelStyle.Render(fmt.Sprintf("%10s", humanize.Bytes(uint64(e.Size)))) +
			"  " + dimStyle.Render(e.ModTime.Format("2006-01-02 15:04")) + "\n")
	}
	if len(entries) > len(shown) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  and %d more", len(entries)-len(shown))) + "\n")
	}
	return b.String()
}

func listenSession(updates <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-updates
		if !ok {
			return browseClosedMsg{}
		}
		return browseEventMsg(ev)
	}
}

func listenChanges(changes <-chan watch.Change) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return fsChangeMsg{}
	}
}

var (
	countStyle      = lipgloss.NewStyle().Foreground(ColorAccent)
	statusLineStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	staleStyle      = lipgloss.NewStyle().Foreground(ColorWarn)
	pngStyle        = lipgloss.NewStyle().Foreground(ColorPNG)
	webpStyle       = lipgloss.NewStyle().Foreground(ColorWebP)
)
