package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/livedeck/internal/storage"
)

func seedJournal(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "reloads.db"))
	if err != nil {
		t.Fatalf("storage.Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now()
	entries := []storage.ReloadEntry{
		{CascadeID: "a1", Project: "/games/alpha", Outcome: "committed", FullReset: true, Assets: 7, Loaded: 7, StartedAt: now},
		{CascadeID: "a2", Project: "/games/alpha", Outcome: "broken", Error: "scripts/main: bad yaml", Assets: 7, Loaded: 6, StartedAt: now.Add(time.Second)},
		{CascadeID: "b1", Project: "/games/beta", Outcome: "committed", SettingsReloaded: true, ManifestReloaded: true, StartedAt: now},
	}
	for _, e := range entries {
		if _, err := store.SaveReload(e); err != nil {
			t.Fatalf("SaveReload() failed: %v", err)
		}
	}
	return store
}

func TestHistoryModelLoadsProject(t *testing.T) {
	store := seedJournal(t)

	m := NewHistoryModel(store, "/games/alpha", 120, 40)
	if m.Project() != "/games/alpha" {
		t.Fatalf("Expected project /games/alpha, got %q", m.Project())
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 reloads, got %d", m.Len())
	}

	view := m.View()
	for _, want := range []string{"RELOAD HISTORY - alpha", "2 cascades", "1 failed", "bad yaml"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestHistoryModelCyclesProjects(t *testing.T) {
	store := seedJournal(t)

	m := NewHistoryModel(store, "", 120, 40)
	first := m.Project()
	if first == "" {
		t.Fatal("Expected to start on a journaled project")
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(HistoryModel)
	if m.Project() == first {
		t.Error("Expected tab to switch project")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(HistoryModel)
	if m.Project() != first {
		t.Errorf("Expected to wrap back to %q, got %q", first, m.Project())
	}
}

func TestHistoryModelUnknownProject(t *testing.T) {
	store := seedJournal(t)

	m := NewHistoryModel(store, "/games/gamma", 120, 40)
	if m.Project() != "/games/gamma" {
		t.Errorf("Expected unjournaled project to be selectable, got %q", m.Project())
	}
	if m.Len() != 0 {
		t.Errorf("Expected no reloads, got %d", m.Len())
	}
	if !strings.Contains(m.View(), "No reloads recorded yet") {
		t.Error("Expected empty message")
	}
}

func TestHistoryModelWithoutJournal(t *testing.T) {
	m := NewHistoryModel(nil, "/games/alpha", 80, 24)
	if !strings.Contains(m.View(), "--no-journal") {
		t.Error("Expected hint about the disabled journal")
	}
}

func TestHistoryModelBackAndQuit(t *testing.T) {
	m := NewHistoryModel(nil, "", 80, 24)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	h := next.(HistoryModel)
	if !h.IsGoingBack() || cmd != nil {
		t.Error("Expected esc to go back without quitting")
	}

	m.standalone = true
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	h = next.(HistoryModel)
	if cmd == nil || h.View() != "" {
		t.Error("Expected standalone history to quit on back")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(HistoryModel).IsQuitting() {
		t.Error("Expected q to quit")
	}
}
