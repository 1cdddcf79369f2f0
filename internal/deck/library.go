package deck

import "github.com/vovakirdan/livedeck/internal/content"

// library exposes the content owners to the scene engine.
type library struct {
	textures *content.Textures
	fonts    *content.Fonts
	audio    *content.Audio
}

func (l library) Sprite(name string) (*content.Sprite, bool) {
	return l.textures.Sprite(name)
}

func (l library) Font(name string) (*content.Font, bool) {
	return l.fonts.Font(name)
}

func (l library) Play(name string) error {
	return l.audio.Play(name)
}
