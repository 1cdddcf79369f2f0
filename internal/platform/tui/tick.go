// Package tui provides the Bubble Tea integration for a deck.
// It runs the frame loop, triggers reload cascades and draws the canvas.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg is sent to advance the game by one frame.
type TickMsg time.Time

// PollMsg is sent to run a reload cascade on a timer.
type PollMsg time.Time

// ChangeMsg carries the files a watcher saw change.
type ChangeMsg struct {
	Paths []string
}

// watchClosedMsg is sent once the change channel is closed.
type watchClosedMsg struct{}

// tickCmd returns a Bubble Tea command that sends tick messages at the specified rate.
func tickCmd(fps int) tea.Cmd {
	interval := time.Second / time.Duration(fps)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func pollCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}

// waitForChange blocks on the watcher channel. Reload cascades run from
// Update, never from the watcher goroutine.
func waitForChange(changes <-chan []string) tea.Cmd {
	return func() tea.Msg {
		paths, ok := <-changes
		if !ok {
			return watchClosedMsg{}
		}
		return ChangeMsg{Paths: paths}
	}
}
