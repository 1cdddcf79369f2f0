package content

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/asset"
	"github.com/vovakirdan/livedeck/internal/core"
)

func quiet() *log.Logger {
	return log.New(io.Discard)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestParseSprite(t *testing.T) {
	sp, err := ParseSprite([]byte(" /\\\r\n<==>\r\n\tx\n\n\n"))
	if err != nil {
		t.Fatalf("ParseSprite() failed: %v", err)
	}
	if sp.Height != 3 {
		t.Errorf("Expected height 3, got %d", sp.Height)
	}
	if sp.Width != 5 {
		t.Errorf("Expected width 5 (tab expanded), got %d", sp.Width)
	}
	if sp.Rows[0] != " /\\" {
		t.Errorf("Expected CR stripped from first row, got %q", sp.Rows[0])
	}
}

func TestParseSpriteEmpty(t *testing.T) {
	for _, data := range []string{"", "\n\n", "   \n \n"} {
		if _, err := ParseSprite([]byte(data)); !errors.Is(err, ErrEmptySprite) {
			t.Errorf("ParseSprite(%q): expected ErrEmptySprite, got %v", data, err)
		}
	}
}

func TestTexturesOwner(t *testing.T) {
	dir := t.TempDir()
	tex := NewTextures(quiet())
	a := asset.New("ship", writeFile(t, dir, "ship.txt", "<>"), asset.CategoryTextures, tex)

	if err := a.Reload(); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	sp, ok := tex.Sprite("ship")
	if !ok || sp.Rows[0] != "<>" {
		t.Fatalf("Expected ship sprite loaded, got %v", sp)
	}

	// A bad edit keeps the previous sprite live.
	writeFile(t, dir, "ship.txt", "")
	if err := tex.OnReload(a); !errors.Is(err, ErrEmptySprite) {
		t.Errorf("Expected ErrEmptySprite, got %v", err)
	}
	if _, ok := tex.Sprite("ship"); !ok {
		t.Error("Expected previous sprite to survive a failed reload")
	}

	tex.OnAssetDestroyed(a)
	if tex.Len() != 0 {
		t.Errorf("Expected no sprites after destroy, got %d", tex.Len())
	}
	tex.OnAssetDestroyed(a)
	tex.Clear()
}

const blockFont = `
height: 2
glyphs:
  A: ["/\\", "||"]
  B: ["|)", "|)"]
  " ": [" ", " "]
`

func TestParseFont(t *testing.T) {
	f, err := ParseFont([]byte(blockFont))
	if err != nil {
		t.Fatalf("ParseFont() failed: %v", err)
	}
	if f.Height != 2 || f.Spacing != 1 || f.Len() != 3 {
		t.Errorf("Unexpected font: height=%d spacing=%d glyphs=%d", f.Height, f.Spacing, f.Len())
	}

	w, h := f.Measure("AB")
	if w != 5 || h != 2 {
		t.Errorf("Expected 5x2, got %dx%d", w, h)
	}

	if _, ok := f.Glyph('a'); !ok {
		t.Error("Expected lower-case lookup to fall back to upper case")
	}
}

func TestParseFontFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "height: [1"},
		{"zero height", "height: 0\nglyphs:\n  A: []\n"},
		{"no glyphs", "height: 1\n"},
		{"row count mismatch", "height: 2\nglyphs:\n  A: [\"#\"]\n"},
		{"multi-rune key", "height: 1\nglyphs:\n  AB: [\"#\"]\n"},
		{"negative spacing", "height: 1\nspacing: -1\nglyphs:\n  A: [\"#\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFont([]byte(tt.data)); !errors.Is(err, ErrBadFont) {
				t.Errorf("Expected ErrBadFont, got %v", err)
			}
		})
	}
}

func TestFontDraw(t *testing.T) {
	f, err := ParseFont([]byte(blockFont))
	if err != nil {
		t.Fatalf("ParseFont() failed: %v", err)
	}
	s := core.NewSurface(10, 3)
	f.Draw(s, 0, 0, "ab", core.ColorWhite)

	if got := s.Row(0); got != "/\\ |)     " {
		t.Errorf("Row 0: got %q", got)
	}
	if got := s.Row(1); got != "|| |)     " {
		t.Errorf("Row 1: got %q", got)
	}
}

func TestSystemFontDrawsPlainText(t *testing.T) {
	f := SystemFont()
	s := core.NewSurface(5, 1)
	f.Draw(s, 1, 0, "hey", core.ColorDefault)
	if got := s.Row(0); got != " hey " {
		t.Errorf("Expected plain text, got %q", got)
	}
	if w, h := f.Measure("hey"); w != 3 || h != 1 {
		t.Errorf("Expected 3x1, got %dx%d", w, h)
	}
}

func TestFontsOwner(t *testing.T) {
	dir := t.TempDir()
	fonts := NewFonts(quiet())
	a := asset.New("block", writeFile(t, dir, "block.yaml", blockFont), asset.CategoryFonts, fonts)

	if err := a.Reload(); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if _, ok := fonts.Font("block"); !ok {
		t.Fatal("Expected block font loaded")
	}

	writeFile(t, dir, "block.yaml", "height: 1\n")
	if err := a.Reload(); !errors.Is(err, core.ErrOwnerReload) {
		t.Errorf("Expected ErrOwnerReload, got %v", err)
	}
	if a.Loaded() {
		t.Error("Expected asset marked not loaded after failed reload")
	}

	fonts.Clear()
	if fonts.Len() != 0 {
		t.Errorf("Expected no fonts after Clear, got %d", fonts.Len())
	}
}

func TestAudioOwner(t *testing.T) {
	dir := t.TempDir()
	au := NewAudio(quiet())
	boom := asset.New("boom", writeFile(t, dir, "boom.wav", "RIFF"), asset.CategorySounds, au)
	theme := asset.New("theme", writeFile(t, dir, "theme.ogg", ""), asset.CategorySoundStreams, au)

	if err := boom.Reload(); err != nil {
		t.Fatalf("Reload(boom) failed: %v", err)
	}
	if err := theme.Reload(); err != nil {
		t.Fatalf("Reload(theme) failed: %v", err)
	}

	if err := au.Play("boom"); err != nil {
		t.Errorf("Play(boom) failed: %v", err)
	}
	if err := au.Play("theme"); err != nil {
		t.Errorf("Play(theme) failed: %v", err)
	}
	if err := au.Play("missing"); !errors.Is(err, ErrUnknownCue) {
		t.Errorf("Expected ErrUnknownCue, got %v", err)
	}

	cues := au.Drain()
	if len(cues) != 2 || cues[0] != "boom" || cues[1] != "theme" {
		t.Errorf("Expected [boom theme], got %v", cues)
	}
	if len(au.Drain()) != 0 {
		t.Error("Expected empty queue after Drain")
	}

	au.OnAssetDestroyed(theme)
	sounds, streams := au.Names()
	if len(sounds) != 1 || len(streams) != 0 {
		t.Errorf("Expected 1 sound and 0 streams, got %v %v", sounds, streams)
	}
}

func TestAudioRejectsEmptySound(t *testing.T) {
	dir := t.TempDir()
	au := NewAudio(quiet())
	a := asset.New("blank", writeFile(t, dir, "blank.wav", ""), asset.CategorySounds, au)

	if err := au.OnReload(a); !errors.Is(err, ErrEmptySound) {
		t.Errorf("Expected ErrEmptySound, got %v", err)
	}
}

func TestAudioRejectsMissingStream(t *testing.T) {
	au := NewAudio(quiet())
	a := asset.New("gone", filepath.Join(t.TempDir(), "gone.ogg"), asset.CategorySoundStreams, au)

	if err := au.OnReload(a); err == nil {
		t.Error("Expected error for a missing stream file")
	}
}
