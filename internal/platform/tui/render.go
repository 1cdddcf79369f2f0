package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/livedeck/internal/core"
	"github.com/vovakirdan/livedeck/internal/deck"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:       lipgloss.NewStyle(),
	core.ColorRed:           lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorMagenta:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	core.ColorCyan:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	core.ColorWhite:         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	core.ColorBrightRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorBrightGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorBrightYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorBrightBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	core.ColorBrightMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	core.ColorBrightCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	core.ColorBrightWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	core.ColorOrange:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	core.ColorGray:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

var frameStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240"))

var brokenFrameStyle = frameStyle.BorderForeground(lipgloss.Color("9"))

var diagnosticStyle = lipgloss.NewStyle().
	Border(lipgloss.ThickBorder()).
	BorderForeground(lipgloss.Color("9")).
	Foreground(lipgloss.Color("15")).
	Padding(0, 1)

var statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

var stateStyles = map[string]lipgloss.Style{
	"running":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	"ready":     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	"not ready": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	"broken":    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// RenderSurface converts a Surface buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderSurface(s *core.Surface) string {
	var sb strings.Builder
	// Pre-allocate with extra space for ANSI codes
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		// Group consecutive cells with the same color for efficiency
		x := 0
		for x < s.Width() {
			cell := s.GetCell(x, y)
			startColor := cell.Color

			var run strings.Builder
			for x < s.Width() {
				cell = s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// RenderFrame draws the canvas inside a border, centered in a display-sized
// area. While the game is broken the diagnostic is shown under the frame.
func RenderFrame(s *core.Surface, st deck.Status) string {
	style := frameStyle
	if st.Diagnostic != "" {
		style = brokenFrameStyle
	}
	framed := style.Render(RenderSurface(s))

	w, h := st.DisplayWidth+2, st.DisplayHeight+2
	if st.Diagnostic == "" {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, framed)
	}

	width := core.Clamp(st.DisplayWidth-4, 16, 72)
	panel := diagnosticStyle.Width(width).Render("reload failed\n\n" + st.Diagnostic)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, framed, panel))
}

// RenderStatusLine summarizes a status on one line.
func RenderStatusLine(st deck.Status, paused bool) string {
	state := st.State
	if s, ok := stateStyles[state]; ok {
		state = s.Render(state)
	}

	parts := []string{
		st.Name,
		state,
		fmt.Sprintf("%d/%d assets", st.Loaded, st.Assets),
		fmt.Sprintf("%dx%d", st.Width, st.Height),
		fmt.Sprintf("%d reloads", st.Cascades),
	}
	if st.LastCascade != nil {
		parts = append(parts, fmt.Sprintf("last %.1fms", st.LastCascade.DurationMS))
	}
	if st.Webserver {
		parts = append(parts, "http")
	}
	if paused {
		parts = append(parts, "PAUSED")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}
