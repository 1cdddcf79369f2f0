package content

import (
	"errors"
	"fmt"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/livedeck/internal/asset"
	"github.com/vovakirdan/livedeck/internal/core"
)

// ErrBadFont is returned for a font file that does not describe a usable font.
var ErrBadFont = errors.New("invalid font")

// Font is a bitmap font: every glyph is Height rows of runes. A font without
// glyphs draws text as-is, one cell per rune.
type Font struct {
	Height  int
	Spacing int
	glyphs  map[rune][]string
	widths  map[rune]int
}

// fontFile is the on-disk layout:
//
//	height: 3
//	spacing: 1
//	glyphs:
//	  A: [" # ", "###", "# #"]
type fontFile struct {
	Height  int                 `yaml:"height"`
	Spacing *int                `yaml:"spacing"`
	Glyphs  map[string][]string `yaml:"glyphs"`
}

// ParseFont decodes a YAML bitmap font. Spacing defaults to one column.
func ParseFont(data []byte) (*Font, error) {
	var raw fontFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFont, err)
	}
	if raw.Height <= 0 {
		return nil, fmt.Errorf("%w: height must be positive, got %d", ErrBadFont, raw.Height)
	}
	if len(raw.Glyphs) == 0 {
		return nil, fmt.Errorf("%w: no glyphs", ErrBadFont)
	}

	f := &Font{
		Height:  raw.Height,
		Spacing: 1,
		glyphs:  make(map[rune][]string, len(raw.Glyphs)),
		widths:  make(map[rune]int, len(raw.Glyphs)),
	}
	if raw.Spacing != nil {
		if *raw.Spacing < 0 {
			return nil, fmt.Errorf("%w: negative spacing", ErrBadFont)
		}
		f.Spacing = *raw.Spacing
	}

	for key, rows := range raw.Glyphs {
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("%w: glyph key %q must be a single character", ErrBadFont, key)
		}
		if len(rows) != raw.Height {
			return nil, fmt.Errorf("%w: glyph %q has %d rows, want %d", ErrBadFont, key, len(rows), raw.Height)
		}
		r, _ := utf8.DecodeRuneInString(key)
		width := 0
		for _, row := range rows {
			width = core.Max(width, utf8.RuneCountInString(row))
		}
		f.glyphs[r] = rows
		f.widths[r] = width
	}
	return f, nil
}

// SystemFont returns the built-in single-row font.
func SystemFont() *Font {
	return &Font{Height: 1}
}

// Glyph looks up a glyph, falling back to the upper-case form.
func (f *Font) Glyph(r rune) ([]string, bool) {
	if g, ok := f.glyphs[r]; ok {
		return g, true
	}
	g, ok := f.glyphs[unicode.ToUpper(r)]
	return g, ok
}

// Len returns the number of glyphs.
func (f *Font) Len() int {
	return len(f.glyphs)
}

// Measure returns the size of text drawn with this font.
func (f *Font) Measure(text string) (int, int) {
	if len(f.glyphs) == 0 {
		return utf8.RuneCountInString(text), 1
	}
	w := 0
	n := 0
	for _, r := range text {
		w += f.advance(r)
		n++
	}
	if n > 0 {
		w -= f.Spacing
	}
	return w, f.Height
}

// Draw renders text with its top-left corner at (x, y). Runes without a glyph
// leave a one-column gap.
func (f *Font) Draw(s *core.Surface, x, y int, text string, c core.Color) {
	if len(f.glyphs) == 0 {
		s.DrawText(x, y, text, c)
		return
	}
	for _, r := range text {
		if g, ok := f.Glyph(r); ok {
			s.Blit(x, y, g, c)
		}
		x += f.advance(r)
	}
}

func (f *Font) advance(r rune) int {
	w, ok := f.widths[r]
	if !ok {
		w, ok = f.widths[unicode.ToUpper(r)]
	}
	if !ok {
		w = 1
	}
	return w + f.Spacing
}

// Fonts owns the fonts category.
type Fonts struct {
	fonts map[string]*Font
	log   *log.Logger
}

// NewFonts creates an empty font owner.
func NewFonts(logger *log.Logger) *Fonts {
	if logger == nil {
		logger = log.Default()
	}
	return &Fonts{
		fonts: make(map[string]*Font),
		log:   logger,
	}
}

// OnReload parses the font file and replaces the font held under the
// asset's name. A failed parse keeps the previous font.
func (f *Fonts) OnReload(a *asset.Asset) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("read font: %w", err)
	}
	font, err := ParseFont(data)
	if err != nil {
		return err
	}
	f.fonts[a.Name] = font
	f.log.Debug("font loaded", "name", a.Name, "glyphs", font.Len(), "height", font.Height)
	return nil
}

// OnAssetDestroyed drops the font.
func (f *Fonts) OnAssetDestroyed(a *asset.Asset) {
	delete(f.fonts, a.Name)
}

// Clear drops every font.
func (f *Fonts) Clear() {
	f.fonts = make(map[string]*Font)
}

// Font returns a loaded font by entry name.
func (f *Fonts) Font(name string) (*Font, bool) {
	font, ok := f.fonts[name]
	return font, ok
}

// Names returns the loaded font names, sorted.
func (f *Fonts) Names() []string {
	return sortedKeys(f.fonts)
}

// Len returns the number of loaded fonts.
func (f *Fonts) Len() int {
	return len(f.fonts)
}
