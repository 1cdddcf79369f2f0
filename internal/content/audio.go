package content

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/asset"
)

var (
	// ErrEmptySound is returned for a zero-length sound file.
	ErrEmptySound = errors.New("sound file is empty")

	// ErrUnknownCue is returned by Play for a name that is not loaded.
	ErrUnknownCue = errors.New("unknown sound")
)

// Sound is a short effect held in memory.
type Sound struct {
	Name string
	Data []byte
}

// Stream is long-form audio opened from disk on demand.
type Stream struct {
	Name string
	Path string
}

// Audio owns the sounds and soundstreams categories. Cues passed to Play are
// queued for a sink; decoding and output happen elsewhere.
type Audio struct {
	sounds  map[string]*Sound
	streams map[string]*Stream
	queue   []string
	log     *log.Logger
}

// NewAudio creates an empty audio owner.
func NewAudio(logger *log.Logger) *Audio {
	if logger == nil {
		logger = log.Default()
	}
	a := &Audio{log: logger}
	a.Clear()
	return a
}

// OnReload loads a sound into memory or verifies a stream can be opened.
func (au *Audio) OnReload(a *asset.Asset) error {
	switch a.Category {
	case asset.CategorySounds:
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return fmt.Errorf("read sound: %w", err)
		}
		if len(data) == 0 {
			return ErrEmptySound
		}
		au.sounds[a.Name] = &Sound{Name: a.Name, Data: data}
		au.log.Debug("sound loaded", "name", a.Name, "bytes", len(data))
	case asset.CategorySoundStreams:
		f, err := os.Open(a.Path)
		if err != nil {
			return fmt.Errorf("open stream: %w", err)
		}
		f.Close()
		au.streams[a.Name] = &Stream{Name: a.Name, Path: a.Path}
		au.log.Debug("stream registered", "name", a.Name)
	default:
		return fmt.Errorf("audio does not handle %s", a.Category)
	}
	return nil
}

// OnAssetDestroyed forgets the sound or stream.
func (au *Audio) OnAssetDestroyed(a *asset.Asset) {
	switch a.Category {
	case asset.CategorySounds:
		delete(au.sounds, a.Name)
	case asset.CategorySoundStreams:
		delete(au.streams, a.Name)
	}
}

// Clear drops every sound, stream and pending cue.
func (au *Audio) Clear() {
	au.sounds = make(map[string]*Sound)
	au.streams = make(map[string]*Stream)
	au.queue = nil
}

// Play queues a loaded sound or stream by name.
func (au *Audio) Play(name string) error {
	_, isSound := au.sounds[name]
	_, isStream := au.streams[name]
	if !isSound && !isStream {
		return fmt.Errorf("%w: %q", ErrUnknownCue, name)
	}
	au.queue = append(au.queue, name)
	return nil
}

// Drain returns the queued cues and empties the queue.
func (au *Audio) Drain() []string {
	q := au.queue
	au.queue = nil
	return q
}

// Sound returns a loaded sound.
func (au *Audio) Sound(name string) (*Sound, bool) {
	s, ok := au.sounds[name]
	return s, ok
}

// Stream returns a registered stream.
func (au *Audio) Stream(name string) (*Stream, bool) {
	s, ok := au.streams[name]
	return s, ok
}

// Names returns the sorted sound and stream names.
func (au *Audio) Names() (sounds, streams []string) {
	return sortedKeys(au.sounds), sortedKeys(au.streams)
}
