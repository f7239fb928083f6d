// Package tui provides the interactive Bubble Tea shell for savekeep.
package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"savekeep/internal/app"
	"savekeep/internal/keep"
)

// errPassphraseCancelled is returned to a restore when the prompt is dismissed.
var errPassphraseCancelled = errors.New("passphrase entry cancelled")

// maxLogLines bounds the log panel's history.
const maxLogLines = 500

// Backend is the part of the coordinator the UI drives.
type Backend interface {
	Session() app.Session
	SelectBackup(path string)
	Backups() ([]*keep.BackupRecord, error)
	BackupNow() (string, error)
	ToggleWatch() (bool, error)
	Cleanup(confirm keep.ConfirmFunc) (int, error)
	RestoreSelected(passphrase app.PassphraseFunc) (bool, error)
	Subscribe() <-chan keep.Event
}

// ── Messages ───────────────────

type eventMsg keep.Event

type eventsClosedMsg struct{}

type backupsMsg struct {
	records []*keep.BackupRecord
	err     error
}

// doneMsg ends an operation started from a key press. Failures have already
// arrived as error events; only outcomes without an event are handled here.
type doneMsg struct {
	op  string
	err error
}

// confirmMsg asks the user a yes/no question on behalf of a running operation.
type confirmMsg struct {
	question string
	reply    chan bool
}

type passphraseReply struct {
	pass string
	err  error
}

// passphraseMsg asks the user for the seal passphrase.
type passphraseMsg struct {
	reply chan passphraseReply
}

// ── Model ────────────────────

type mode int

const (
	modeNormal mode = iota
	modeConfirm
	modePassphrase
)

// prompt is a pending yes/no question. Exactly one of reply and onYes is set:
// reply answers an operation that is waiting, onYes starts one.
type prompt struct {
	question string
	reply    chan bool
	onYes    tea.Cmd
}

// Model is the root Bubble Tea model.
type Model struct {
	backend Backend
	events  <-chan keep.Event
	msgs    chan tea.Msg

	session app.Session
	backups []*keep.BackupRecord
	cursor  int

	status string
	lines  []string
	log    viewport.Model

	mode      mode
	prompt    prompt
	pass      textinput.Model
	passReply chan passphraseReply

	width  int
	height int
	ready  bool
}

// New creates the UI for backend and subscribes to its events.
func New(backend Backend) Model {
	ti := textinput.New()
	ti.Placeholder = "passphrase"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'

	return Model{
		backend: backend,
		events:  backend.Subscribe(),
		msgs:    make(chan tea.Msg, 1),
		session: backend.Session(),
		status:  "Ready.",
		log:     viewport.New(80, 10),
		pass:    ti,
	}
}

// Run shows m on the alternate screen and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForMsg(), m.loadBackups())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m Model) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgs
	}
}

func (m Model) loadBackups() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		records, err := b.Backups()
		return backupsMsg{records: records, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirm:
			return m.updateConfirm(msg)
		case modePassphrase:
			return m.updatePassphrase(msg)
		}
		return m.updateNormal(msg)

	case eventMsg:
		m.addEvent(keep.Event(msg))
		m.session = m.backend.Session()
		return m, tea.Batch(m.waitForEvent(), m.loadBackups())

	case eventsClosedMsg:
		return m, nil

	case backupsMsg:
		if msg.err != nil && !errors.Is(msg.err, app.ErrNoBackupDir) {
			m.status = "Could not list backups: " + msg.err.Error()
		}
		m.setBackups(msg.records)
		return m, nil

	case doneMsg:
		if errors.Is(msg.err, keep.ErrDeclined) {
			m.status = "Clean up cancelled."
		}
		m.session = m.backend.Session()
		return m, nil

	case confirmMsg:
		m.mode = modeConfirm
		m.prompt = prompt{question: msg.question, reply: msg.reply}
		return m, m.waitForMsg()

	case passphraseMsg:
		m.mode = modePassphrase
		m.passReply = msg.reply
		m.pass.Reset()
		return m, tea.Batch(m.pass.Focus(), m.waitForMsg())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.backend
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "b":
		m.status = "Backing up..."
		return m, func() tea.Msg {
			_, err := b.BackupNow()
			return doneMsg{op: "backup", err: err}
		}

	case "w":
		return m, func() tea.Msg {
			_, err := b.ToggleWatch()
			return doneMsg{op: "watch", err: err}
		}

	case "c":
		return m, func() tea.Msg {
			_, err := b.Cleanup(m.askConfirm)
			return doneMsg{op: "cleanup", err: err}
		}

	case "r":
		s := m.backend.Session()
		switch {
		case s.Backup == "":
			m.status = "Select a backup first."
			return m, nil
		case s.RestoreTarget == "":
			m.status = "No restore target selected."
			return m, nil
		}
		m.mode = modeConfirm
		m.prompt = prompt{
			question: fmt.Sprintf("Overwrite %s with %s?", s.RestoreTarget, filepath.Base(s.Backup)),
			onYes: func() tea.Msg {
				_, err := b.RestoreSelected(m.askPassphrase)
				return doneMsg{op: "restore", err: err}
			},
		}
		return m, nil

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch msg.String() {
	case "y", "Y":
		yes = true
	case "n", "N", "esc":
	case "ctrl+c":
		m.answer(false)
		return m, tea.Quit
	default:
		return m, nil
	}

	p := m.prompt
	m.answer(yes)
	if yes && p.onYes != nil {
		return m, p.onYes
	}
	if !yes && p.onYes != nil {
		m.status = "Cancelled."
	}
	return m, nil
}

// answer resolves the pending prompt and returns to normal mode.
func (m *Model) answer(yes bool) {
	if m.prompt.reply != nil {
		m.prompt.reply <- yes
	}
	m.prompt = prompt{}
	m.mode = modeNormal
}

func (m Model) updatePassphrase(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.passReply <- passphraseReply{pass: m.pass.Value()}
		m.endPassphrase()
		return m, nil
	case "esc":
		m.passReply <- passphraseReply{err: errPassphraseCancelled}
		m.endPassphrase()
		return m, nil
	case "ctrl+c":
		m.passReply <- passphraseReply{err: errPassphraseCancelled}
		m.endPassphrase()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.pass, cmd = m.pass.Update(msg)
	return m, cmd
}

func (m *Model) endPassphrase() {
	m.pass.Reset()
	m.pass.Blur()
	m.passReply = nil
	m.mode = modeNormal
}

// askConfirm is the cleanup confirmation. It runs on the operation's
// goroutine and blocks until the user answers.
func (m Model) askConfirm(dir string, count int) bool {
	reply := make(chan bool, 1)
	m.msgs <- confirmMsg{
		question: fmt.Sprintf("Delete all %d file(s) in %s?", count, dir),
		reply:    reply,
	}
	return <-reply
}

// askPassphrase collects the seal passphrase for a sealed restore.
func (m Model) askPassphrase() (string, error) {
	reply := make(chan passphraseReply, 1)
	m.msgs <- passphraseMsg{reply: reply}
	r := <-reply
	return r.pass, r.err
}

func (m *Model) addEvent(e keep.Event) {
	m.status = e.Status()
	m.lines = append(m.lines, e.LogLine())
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

// setBackups replaces the listing, keeping the selected backup under the
// cursor when it is still present.
func (m *Model) setBackups(records []*keep.BackupRecord) {
	m.backups = records
	m.cursor = 0
	for i, r := range records {
		if r.Path == m.session.Backup {
			m.cursor = i
			return
		}
	}
}

// moveCursor moves the selection by delta. The first move only selects the
// backup under the cursor.
func (m *Model) moveCursor(delta int) {
	if len(m.backups) == 0 {
		return
	}
	if m.selected() {
		m.cursor = max(0, min(len(m.backups)-1, m.cursor+delta))
	}
	m.backend.SelectBackup(m.backups[m.cursor].Path)
	m.session = m.backend.Session()
}

func (m *Model) selected() bool {
	return m.session.Backup != "" && m.cursor < len(m.backups) && m.backups[m.cursor].Path == m.session.Backup
}
