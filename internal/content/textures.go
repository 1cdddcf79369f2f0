// Package content holds the subsystems that own loaded content: ASCII
// textures, bitmap fonts and audio cues. Each type implements asset.Owner and
// keys what it holds by manifest entry name.
package content

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/asset"
)

// ErrEmptySprite is returned for a texture file with no visible rows.
var ErrEmptySprite = errors.New("texture has no rows")

// tabWidth is the number of cells a tab expands to in texture files.
const tabWidth = 4

// Sprite is a rectangular block of runes. Rows shorter than Width are padded
// on draw by transparency.
type Sprite struct {
	Rows   []string
	Width  int
	Height int
}

// ParseSprite reads an ASCII texture. Line endings are normalized, tabs are
// expanded and trailing blank lines dropped.
func ParseSprite(data []byte) (*Sprite, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))

	rows := strings.Split(text, "\n")
	for i := range rows {
		rows[i] = strings.TrimRight(rows[i], " ")
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmptySprite
	}

	sp := &Sprite{Rows: rows, Height: len(rows)}
	for _, row := range rows {
		if n := len([]rune(row)); n > sp.Width {
			sp.Width = n
		}
	}
	return sp, nil
}

// Textures owns the textures category.
type Textures struct {
	sprites map[string]*Sprite
	log     *log.Logger
}

// NewTextures creates an empty texture owner.
func NewTextures(logger *log.Logger) *Textures {
	if logger == nil {
		logger = log.Default()
	}
	return &Textures{
		sprites: make(map[string]*Sprite),
		log:     logger,
	}
}

// OnReload parses the texture file and replaces the sprite held under the
// asset's name. A failed parse keeps the previous sprite.
func (t *Textures) OnReload(a *asset.Asset) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("read texture: %w", err)
	}
	sp, err := ParseSprite(data)
	if err != nil {
		return err
	}
	t.sprites[a.Name] = sp
	t.log.Debug("texture loaded", "name", a.Name, "size", fmt.Sprintf("%dx%d", sp.Width, sp.Height))
	return nil
}

// OnAssetDestroyed drops the sprite.
func (t *Textures) OnAssetDestroyed(a *asset.Asset) {
	delete(t.sprites, a.Name)
}

// Clear drops every sprite.
func (t *Textures) Clear() {
	t.sprites = make(map[string]*Sprite)
}

// Sprite returns a loaded sprite by entry name.
func (t *Textures) Sprite(name string) (*Sprite, bool) {
	sp, ok := t.sprites[name]
	return sp, ok
}

// Names returns the loaded sprite names, sorted.
func (t *Textures) Names() []string {
	return sortedKeys(t.sprites)
}

// Len returns the number of loaded sprites.
func (t *Textures) Len() int {
	return len(t.sprites)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
