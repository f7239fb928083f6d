package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	watchOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	watchOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	logStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// listRows is how many backups are shown at once.
const listRows = 8

// fixedRows counts everything outside the log panel: title, four path rows,
// list heading, the list, log border, status and hint.
const fixedRows = 1 + 4 + 1 + listRows + 2 + 1 + 1

func (m *Model) resize() {
	h := m.height - fixedRows
	if h < 3 {
		h = 3
	}
	w := m.width - 2
	if w < 10 {
		w = 10
	}
	m.log.Width = w
	m.log.Height = h
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("savekeep")

	watch := watchOffStyle.Render("off")
	if m.session.Watching {
		watch = watchOnStyle.Render("on")
	}
	fields := strings.Join([]string{
		field("Source", m.session.Source),
		field("Backup folder", m.session.BackupDir),
		field("Restore target", m.session.RestoreTarget),
		field("Watching", watch),
	}, "\n")

	list := sectionHeader.Render(fmt.Sprintf("Backups (%d)", len(m.backups))) + "\n" + m.renderBackups()
	logPanel := logStyle.Render(m.log.View())

	return lipgloss.JoinVertical(lipgloss.Left, title, fields, list, logPanel, m.renderStatus(), m.renderHint())
}

func field(label, value string) string {
	if value == "" {
		value = dimStyle.Render("(not set)")
	}
	return labelStyle.Render(fmt.Sprintf("%-15s", label)) + " " + value
}

// renderBackups shows a window of listRows backups around the cursor, padded
// so the layout does not jump as the list grows.
func (m Model) renderBackups() string {
	rows := make([]string, 0, listRows)
	if len(m.backups) == 0 {
		rows = append(rows, dimStyle.Render("  no backups yet"))
	}

	start := 0
	if m.cursor >= listRows {
		start = m.cursor - listRows + 1
	}
	for i := start; i < len(m.backups) && i < start+listRows; i++ {
		r := m.backups[i]
		line := fmt.Sprintf("  %s  %s  %8d B", r.Taken.Format("2006-01-02 15:04:05"), r.Name(), r.Size)
		if r.Sealed {
			line += "  sealed"
		}
		if i == m.cursor && m.selected() {
			line = selectedRowStyle.Render(line)
		}
		rows = append(rows, line)
	}
	for len(rows) < listRows {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderStatus() string {
	switch m.mode {
	case modeConfirm:
		return promptStyle.Render(m.prompt.question + " (y/n)")
	case modePassphrase:
		return promptStyle.Render("Seal passphrase: ") + m.pass.View()
	}
	return statusBarStyle.Width(m.width).Render(m.status)
}

func (m Model) renderHint() string {
	switch m.mode {
	case modeConfirm:
		return hintStyle.Render("  y confirm  n cancel")
	case modePassphrase:
		return hintStyle.Render("  enter unlock  esc cancel")
	}
	return hintStyle.Render("  b backup  w watch  c clean up  ↑/↓ select  r restore  q quit")
}
