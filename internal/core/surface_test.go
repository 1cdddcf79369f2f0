package core

import (
	"strings"
	"testing"
)

func TestNewSurface(t *testing.T) {
	s := NewSurface(80, 24)

	if s.Width() != 80 {
		t.Errorf("Width() = %d, expected 80", s.Width())
	}
	if s.Height() != 24 {
		t.Errorf("Height() = %d, expected 24", s.Height())
	}
	if s.Resets() != 0 {
		t.Errorf("Resets() = %d, expected 0 for a fresh surface", s.Resets())
	}

	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			if s.Get(x, y) != ' ' {
				t.Fatalf("New surface should be blank, got %q at (%d, %d)", s.Get(x, y), x, y)
			}
		}
	}
}

func TestNewSurfaceNegativeSize(t *testing.T) {
	s := NewSurface(-3, -1)
	if s.Width() != 0 || s.Height() != 0 {
		t.Errorf("Negative size should clamp to 0x0, got %dx%d", s.Width(), s.Height())
	}
	if s.String() != "" {
		t.Errorf("Empty surface String() = %q, expected empty", s.String())
	}
}

func TestSurfaceSetGet(t *testing.T) {
	s := NewSurface(10, 10)

	s.Set(5, 5, 'X', ColorRed)
	if s.Get(5, 5) != 'X' {
		t.Errorf("Get(5, 5) = %q, expected 'X'", s.Get(5, 5))
	}
	if s.GetCell(5, 5).Color != ColorRed {
		t.Errorf("GetCell(5, 5).Color = %d, expected red", s.GetCell(5, 5).Color)
	}

	// Out of bounds should be silent
	s.Set(-1, 0, 'A', ColorDefault)
	s.Set(100, 0, 'A', ColorDefault)
	s.Set(0, -1, 'A', ColorDefault)
	s.Set(0, 100, 'A', ColorDefault)

	if s.Get(-1, 0) != ' ' {
		t.Error("Out of bounds Get should return space")
	}
	if s.Get(100, 0) != ' ' {
		t.Error("Out of bounds Get should return space")
	}
}

func TestSurfaceResetDiscardsContent(t *testing.T) {
	s := NewSurface(10, 4)
	s.DrawText(0, 0, "Hello", ColorDefault)

	s.Reset(20, 6)
	if s.Width() != 20 || s.Height() != 6 {
		t.Errorf("After Reset, dimensions should be 20x6, got %dx%d", s.Width(), s.Height())
	}
	if strings.TrimSpace(s.String()) != "" {
		t.Errorf("Reset should clear content, got %q", s.String())
	}
	if s.Resets() != 1 {
		t.Errorf("Resets() = %d, expected 1", s.Resets())
	}
}

func TestSurfaceFill(t *testing.T) {
	s := NewSurface(5, 5)
	s.Fill('#', ColorGray)

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if c := s.GetCell(x, y); c.Rune != '#' || c.Color != ColorGray {
				t.Errorf("After Fill, expected gray '#' at (%d, %d), got %+v", x, y, c)
			}
		}
	}
}

func TestSurfaceDrawText(t *testing.T) {
	s := NewSurface(20, 5)
	s.DrawText(2, 1, "Hello", ColorDefault)

	for i, ch := range "Hello" {
		if s.Get(2+i, 1) != ch {
			t.Errorf("DrawText: expected %q at (%d, 1), got %q", ch, 2+i, s.Get(2+i, 1))
		}
	}

	// Clipped at the right edge
	s.DrawText(18, 0, "Hello", ColorDefault)
	if s.Get(18, 0) != 'H' || s.Get(19, 0) != 'e' {
		t.Error("Text should be clipped at right boundary")
	}
}

func TestSurfaceDrawTextMultibyte(t *testing.T) {
	s := NewSurface(5, 1)
	s.DrawText(0, 0, "äöü", ColorDefault)

	if s.Row(0) != "äöü  " {
		t.Errorf("Row(0) = %q, expected %q", s.Row(0), "äöü  ")
	}
}

func TestSurfaceBlitTransparent(t *testing.T) {
	s := NewSurface(6, 3)
	s.Fill('.', ColorDefault)
	s.Blit(1, 0, []string{"/\\", "  ", "\\/"}, ColorCyan)

	expected := "./\\...\n......\n.\\/..."
	if s.String() != expected {
		t.Errorf("String() = %q, expected %q", s.String(), expected)
	}
	if s.GetCell(1, 0).Color != ColorCyan {
		t.Error("Blitted cell should carry the blit color")
	}
}

func TestSurfaceDrawBox(t *testing.T) {
	s := NewSurface(10, 10)
	s.DrawBox(NewRect(1, 1, 5, 4), ColorDefault)

	corners := map[[2]int]rune{
		{1, 1}: '┌',
		{5, 1}: '┐',
		{1, 4}: '└',
		{5, 4}: '┘',
	}
	for pos, want := range corners {
		if got := s.Get(pos[0], pos[1]); got != want {
			t.Errorf("Corner at %v should be %q, got %q", pos, want, got)
		}
	}

	for x := 2; x < 5; x++ {
		if s.Get(x, 1) != '─' || s.Get(x, 4) != '─' {
			t.Errorf("Horizontal edge missing at x=%d", x)
		}
	}
	for y := 2; y < 4; y++ {
		if s.Get(1, y) != '│' || s.Get(5, y) != '│' {
			t.Errorf("Vertical edge missing at y=%d", y)
		}
	}
}

func TestSurfaceSnapshotIsIndependent(t *testing.T) {
	s := NewSurface(4, 1)
	s.DrawText(0, 0, "abcd", ColorDefault)

	snap := s.Snapshot()
	s.Clear()

	if snap.Row(0) != "abcd" {
		t.Errorf("Snapshot should keep old content, got %q", snap.Row(0))
	}
}

func TestSurfaceString(t *testing.T) {
	s := NewSurface(5, 3)
	s.DrawText(0, 0, "AAAAA", ColorDefault)
	s.DrawText(0, 1, "BBBBB", ColorDefault)
	s.DrawText(0, 2, "CCCCC", ColorDefault)

	expected := "AAAAA\nBBBBB\nCCCCC"
	if s.String() != expected {
		t.Errorf("String() = %q, expected %q", s.String(), expected)
	}
}

func TestSurfaceRowOutOfBounds(t *testing.T) {
	s := NewSurface(10, 5)
	if s.Row(-1) != "          " {
		t.Errorf("Out of bounds row should be spaces, got %q", s.Row(-1))
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		name string
		want Color
		ok   bool
	}{
		{"", ColorDefault, true},
		{"red", ColorRed, true},
		{"Bright_Cyan", ColorBrightCyan, true},
		{" grey ", ColorGray, true},
		{"chartreuse", ColorDefault, false},
	}

	for _, tt := range tests {
		got, ok := ParseColor(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = (%d, %v), expected (%d, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWrapAndClamp(t *testing.T) {
	if Wrap(-1, 10) != 9 {
		t.Errorf("Wrap(-1, 10) = %d, expected 9", Wrap(-1, 10))
	}
	if Wrap(25, 10) != 5 {
		t.Errorf("Wrap(25, 10) = %d, expected 5", Wrap(25, 10))
	}
	if Wrap(3, 0) != 0 {
		t.Errorf("Wrap(3, 0) = %d, expected 0", Wrap(3, 0))
	}
	if Clamp(15, 0, 10) != 10 || Clamp(-5, 0, 10) != 0 || Clamp(5, 0, 10) != 5 {
		t.Error("Clamp returned an unexpected value")
	}
}
