package core

import (
	"strings"
)

// Cell is one character position on a Surface.
type Cell struct {
	Rune  rune
	Color Color
}

// blank is the value every cell holds after a clear.
var blank = Cell{Rune: ' ', Color: ColorDefault}

// Surface is the render target a deck draws its canvas into. It is sized to
// the view dimensions from the settings and is reallocated, never resized in
// place, when those change.
type Surface struct {
	width  int
	height int
	cells  [][]Cell
	resets int
}

// NewSurface allocates a cleared surface. Non-positive dimensions are treated
// as zero so a surface can exist before settings are known.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Reset(width, height)
	s.resets = 0
	return s
}

// Reset reallocates the surface at the given size and clears it. Any
// previously drawn content is discarded.
func (s *Surface) Reset(width, height int) {
	s.width = Max(width, 0)
	s.height = Max(height, 0)
	s.cells = make([][]Cell, s.height)
	for y := range s.cells {
		s.cells[y] = make([]Cell, s.width)
	}
	s.Clear()
	s.resets++
}

// Resets reports how many times the surface has been reallocated.
func (s *Surface) Resets() int {
	return s.resets
}

// Width returns the surface width in cells.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the surface height in cells.
func (s *Surface) Height() int {
	return s.height
}

// Bounds returns the surface area as a rectangle at the origin.
func (s *Surface) Bounds() Rect {
	return NewRect(0, 0, s.width, s.height)
}

// Clear fills every cell with a blank.
func (s *Surface) Clear() {
	s.Fill(' ', ColorDefault)
}

// Fill sets every cell to the given rune and color.
func (s *Surface) Fill(r rune, c Color) {
	for y := range s.cells {
		for x := range s.cells[y] {
			s.cells[y][x] = Cell{Rune: r, Color: c}
		}
	}
}

// Set places a rune at (x, y). Out-of-bounds writes are ignored.
func (s *Surface) Set(x, y int, r rune, c Color) {
	if !s.Bounds().Contains(x, y) {
		return
	}
	s.cells[y][x] = Cell{Rune: r, Color: c}
}

// GetCell returns the cell at (x, y), or a blank cell when out of bounds.
func (s *Surface) GetCell(x, y int) Cell {
	if !s.Bounds().Contains(x, y) {
		return blank
	}
	return s.cells[y][x]
}

// Get returns the rune at (x, y).
func (s *Surface) Get(x, y int) rune {
	return s.GetCell(x, y).Rune
}

// DrawText writes text horizontally starting at (x, y), clipping at the edges.
func (s *Surface) DrawText(x, y int, text string, c Color) {
	i := 0
	for _, r := range text {
		s.Set(x+i, y, r, c)
		i++
	}
}

// Blit copies rows of runes with their top-left corner at (x, y). Spaces in
// the source are transparent.
func (s *Surface) Blit(x, y int, rows []string, c Color) {
	for dy, row := range rows {
		dx := 0
		for _, r := range row {
			if r != ' ' {
				s.Set(x+dx, y+dy, r, c)
			}
			dx++
		}
	}
}

// DrawBox draws a box outline using box-drawing characters.
func (s *Surface) DrawBox(r Rect, c Color) {
	if r.W < 2 || r.H < 2 {
		return
	}
	s.Set(r.X, r.Y, '┌', c)
	s.Set(r.Right()-1, r.Y, '┐', c)
	s.Set(r.X, r.Bottom()-1, '└', c)
	s.Set(r.Right()-1, r.Bottom()-1, '┘', c)

	for x := r.X + 1; x < r.Right()-1; x++ {
		s.Set(x, r.Y, '─', c)
		s.Set(x, r.Bottom()-1, '─', c)
	}
	for y := r.Y + 1; y < r.Bottom()-1; y++ {
		s.Set(r.X, y, '│', c)
		s.Set(r.Right()-1, y, '│', c)
	}
}

// Snapshot returns a deep copy of the surface contents.
func (s *Surface) Snapshot() *Surface {
	cp := &Surface{width: s.width, height: s.height, resets: s.resets}
	cp.cells = make([][]Cell, s.height)
	for y := range s.cells {
		cp.cells[y] = append([]Cell(nil), s.cells[y]...)
	}
	return cp
}

// String converts the surface to plain text, one line per row.
func (s *Surface) String() string {
	var sb strings.Builder
	sb.Grow(s.width*s.height + s.height)

	for y := 0; y < s.height; y++ {
		if y > 0 {
			sb.WriteRune('\n')
		}
		for x := 0; x < s.width; x++ {
			sb.WriteRune(s.cells[y][x].Rune)
		}
	}
	return sb.String()
}

// Row returns the runes of row y as a string.
func (s *Surface) Row(y int) string {
	if y < 0 || y >= s.height {
		return strings.Repeat(" ", s.width)
	}
	var sb strings.Builder
	for _, c := range s.cells[y] {
		sb.WriteRune(c.Rune)
	}
	return sb.String()
}
