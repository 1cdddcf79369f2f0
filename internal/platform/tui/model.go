package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/deck"
	"github.com/vovakirdan/livedeck/internal/storage"
)

const (
	// DefaultFPS is the frame rate used when Options.FPS is unset.
	DefaultFPS = 30

	// maxFrameDelta caps dt after a stall so sprites do not jump.
	maxFrameDelta = 0.25
)

// Options configure a Model.
type Options struct {
	FPS int

	// Poll runs a reload cascade on this interval. Zero disables polling.
	Poll time.Duration

	// Changes delivers batches of changed paths from a file watcher.
	Changes <-chan []string

	// Journal backs the history view. May be nil.
	Journal *storage.Store

	// AfterReload runs in the update loop after every cascade.
	AfterReload func(*deck.Deck)

	// ScreenshotDir defaults to ~/.deck/screenshots.
	ScreenshotDir string

	Logger *log.Logger
}

// Model is the Bubble Tea model driving one deck. Every cascade, frame update
// and render happens inside Update or View, so the deck has a single mutator.
type Model struct {
	deck    *deck.Deck
	opts    Options
	log     *log.Logger
	keys    KeyMap
	help    help.Model
	history *HistoryModel

	width    int
	height   int
	lastTick time.Time
	paused   bool
	quitting bool
	notice   string
}

// NewModel creates a Bubble Tea model for d.
func NewModel(d *deck.Deck, opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return Model{
		deck: d,
		opts: opts,
		log:  logger,
		keys: DefaultKeyMap(),
		help: help.New(),
	}
}

// Init runs the first cascade and starts the frame, poll and watch loops.
func (m Model) Init() tea.Cmd {
	m.reload("startup")

	cmds := []tea.Cmd{tickCmd(m.opts.FPS)}
	if m.opts.Poll > 0 {
		cmds = append(cmds, pollCmd(m.opts.Poll))
	}
	if m.opts.Changes != nil {
		cmds = append(cmds, waitForChange(m.opts.Changes))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.history != nil {
			return m.updateHistory(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.history != nil {
			return m.updateHistory(msg)
		}
		return m, nil

	case TickMsg:
		return m.handleTick(time.Time(msg))

	case PollMsg:
		m.reload("poll")
		return m, pollCmd(m.opts.Poll)

	case ChangeMsg:
		m.log.Debug("files changed", "paths", msg.Paths)
		m.reload("watch")
		return m, waitForChange(m.opts.Changes)

	case watchClosedMsg:
		m.log.Warn("file watcher stopped; reloads continue on keypress and poll")
		return m, nil
	}

	return m, nil
}

func (m Model) reload(reason string) {
	m.log.Debug("reload", "reason", reason)
	//nolint:errcheck // The deck logs and publishes the failure
	m.deck.ForceReload()
	if m.opts.AfterReload != nil {
		m.opts.AfterReload(m.deck)
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reload):
		m.reload("key")

	case key.Matches(msg, m.keys.ContextReset):
		m.deck.ContextReset()
		m.reload("context reset")
		m.notice = "display context reset"

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused

	case key.Matches(msg, m.keys.History):
		h := NewHistoryModel(m.opts.Journal, m.deck.Root(), m.width, m.height)
		m.history = &h

	case key.Matches(msg, m.keys.Screenshot):
		m.notice = m.saveScreenshot()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m Model) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.history.Update(msg)
	h, ok := next.(HistoryModel)
	if !ok {
		return m, cmd
	}

	switch {
	case h.IsQuitting():
		m.quitting = true
		m.history = nil
	case h.IsGoingBack():
		m.history = nil
	default:
		m.history = &h
	}
	return m, cmd
}

// handleTick advances the game by the real time since the previous frame.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	dt := 1 / float64(m.opts.FPS)
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick).Seconds()
	}
	m.lastTick = now
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}

	if !m.paused {
		//nolint:errcheck // A failing hook breaks the game; the status shows why
		m.deck.Update(dt)
	}
	return m, tickCmd(m.opts.FPS)
}

// saveScreenshot writes the current canvas to a text file.
func (m Model) saveScreenshot() string {
	dir := m.opts.ScreenshotDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "screenshot failed: " + err.Error()
		}
		dir = filepath.Join(home, ".deck", "screenshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "screenshot failed: " + err.Error()
	}

	name := m.deck.Settings().Name
	if name == "" {
		name = filepath.Base(m.deck.Root())
	}
	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", name, timestamp))

	if err := os.WriteFile(path, []byte(m.deck.Surface().String()), 0o600); err != nil {
		return "screenshot failed: " + err.Error()
	}
	return "saved " + path
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.history != nil {
		return m.history.View()
	}

	st := m.deck.Status()
	sections := []string{
		RenderFrame(m.deck.Render(), st),
		RenderStatusLine(st, m.paused),
	}
	if m.notice != "" {
		sections = append(sections, statusStyle.Render(m.notice))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Paused reports whether frame updates are suspended.
func (m Model) Paused() bool {
	return m.paused
}

// Run starts the Bubble Tea program for d and blocks until it quits.
func Run(d *deck.Deck, opts Options) error {
	p := tea.NewProgram(
		NewModel(d, opts),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
