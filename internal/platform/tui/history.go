package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/livedeck/internal/storage"
)

// History layout constants
const (
	historyMinWidth = 60
	maxHistory      = 200 // Max reloads to load
)

// HistoryKeyMap defines the key bindings for the reload history.
type HistoryKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextProject key.Binding
	PrevProject key.Binding
	Refresh     key.Binding
	Back        key.Binding
	Quit        key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextProject, k.Refresh, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextProject, k.PrevProject},
		{k.Refresh, k.Back, k.Quit},
	}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		NextProject: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next project"),
		),
		PrevProject: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("S-tab", "prev project"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b", "h"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel lists the journaled cascades of one project at a time.
type HistoryModel struct {
	store     *storage.Store
	projects  []string
	cursor    int
	entries   []storage.ReloadEntry
	stats     *storage.ReloadStats
	loadErr   error
	table     table.Model
	help      help.Model
	keys      HistoryKeyMap
	width     int
	height    int
	quitting  bool
	goingBack bool

	// standalone quits the program on back instead of returning to a parent.
	standalone bool
}

// NewHistoryModel creates a history view opened on project. An empty project
// starts on the first journaled one.
func NewHistoryModel(store *storage.Store, project string, width, height int) HistoryModel {
	h := help.New()
	h.ShowAll = false

	m := HistoryModel{
		store:  store,
		keys:   DefaultHistoryKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.loadProjects(project)
	return m
}

func (m *HistoryModel) loadProjects(current string) {
	m.projects, m.loadErr = nil, nil
	if m.store != nil {
		projects, err := m.store.Projects()
		if err != nil {
			m.loadErr = err
		}
		m.projects = projects
	}

	if current != "" {
		found := false
		for i, p := range m.projects {
			if p == current {
				m.cursor, found = i, true
				break
			}
		}
		if !found {
			m.projects = append(m.projects, current)
			m.cursor = len(m.projects) - 1
		}
	}
	if m.cursor >= len(m.projects) {
		m.cursor = 0
	}
	m.loadEntries()
}

// createTable creates a new table sized to the window.
func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "When", Width: 15},
		{Title: "Outcome", Width: 9},
		{Title: "ms", Width: 7},
		{Title: "Assets", Width: 9},
		{Title: "Flags", Width: 5},
		{Title: "Error", Width: 20},
	}

	// Give the error column whatever is left
	used := 0
	for _, c := range columns[:len(columns)-1] {
		used += c.Width + 2
	}
	if rest := m.width - 6 - used; rest > columns[len(columns)-1].Width {
		columns[len(columns)-1].Width = rest
	}

	height := m.height - 9 // Leave room for header, help, and margins
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m *HistoryModel) loadEntries() {
	m.entries, m.stats = nil, nil
	if m.store != nil && len(m.projects) > 0 {
		project := m.projects[m.cursor]
		entries, err := m.store.RecentReloads(project, maxHistory)
		if err != nil {
			m.loadErr = err
		}
		m.entries = entries

		stats, err := m.store.Stats(project)
		if err == nil {
			m.stats = stats
		}
	}
	m.updateTableRows()
}

// updateTableRows updates the table with the loaded entries.
func (m *HistoryModel) updateTableRows() {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		rows[i] = table.Row{
			e.StartedAt.Format("Jan 02 15:04:05"),
			e.Outcome,
			fmt.Sprintf("%.1f", float64(e.Duration.Microseconds())/1000),
			fmt.Sprintf("%d/%d/%d", e.Reloaded, e.Loaded, e.Assets),
			e.Flags(),
			e.Error,
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history view.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			if m.standalone {
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.loadProjects(m.Project())
			return m, nil

		case key.Matches(msg, m.keys.NextProject):
			if len(m.projects) > 0 {
				m.cursor = (m.cursor + 1) % len(m.projects)
				m.loadEntries()
			}
			return m, nil

		case key.Matches(msg, m.keys.PrevProject):
			if len(m.projects) > 0 {
				m.cursor--
				if m.cursor < 0 {
					m.cursor = len(m.projects) - 1
				}
				m.loadEntries()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history.
func (m HistoryModel) View() string {
	if m.quitting || (m.standalone && m.goingBack) {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))

	title := "RELOAD HISTORY"
	if p := m.Project(); p != "" {
		title = fmt.Sprintf("RELOAD HISTORY - %s", filepath.Base(p))
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if m.stats != nil && m.stats.Total > 0 {
		b.WriteString(dim.Render(fmt.Sprintf("%d cascades · %d failed · %d full resets · avg %v",
			m.stats.Total, m.stats.Failures, m.stats.FullResets, m.stats.AvgDuration)))
	}
	if len(m.projects) > 1 && m.width >= historyMinWidth {
		b.WriteString(dim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.projects))))
	}
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	b.WriteString(tableStyle.Render(m.renderTableContent()))

	b.WriteString("\n")
	b.WriteString(dim.Render(m.help.View(m.keys)))

	return b.String()
}

// renderTableContent renders the table or empty message.
func (m HistoryModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	switch {
	case m.store == nil:
		return emptyStyle.Render("No reload journal.\nRun without --no-journal to record reloads.")
	case m.loadErr != nil:
		return emptyStyle.Render("Cannot read journal:\n" + m.loadErr.Error())
	case len(m.entries) == 0:
		return emptyStyle.Render("No reloads recorded yet.\nEdit a file to trigger one!")
	}
	return m.table.View()
}

// Project returns the project being shown.
func (m HistoryModel) Project() string {
	if len(m.projects) == 0 {
		return ""
	}
	return m.projects[m.cursor]
}

// Len returns the number of loaded reloads.
func (m HistoryModel) Len() int {
	return len(m.entries)
}

// IsGoingBack returns true if user wants to leave the history.
func (m HistoryModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting returns true if user wants to quit entirely.
func (m HistoryModel) IsQuitting() bool {
	return m.quitting
}

// RunHistory runs the history as a standalone screen.
func RunHistory(store *storage.Store, project string, width, height int) error {
	model := NewHistoryModel(store, project, width, height)
	model.standalone = true

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
