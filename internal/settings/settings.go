// Package settings reads the deck's settings file: canvas and display size,
// the manifest location, the entry script and the update hook. Missing keys
// fall back to per-field defaults and the display is never allowed to be
// smaller than the canvas.
package settings

import (
	"fmt"
)

// Orientation values accepted in the settings file.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Settings is the parsed content of a settings file.
type Settings struct {
	Name string `yaml:"name"`

	// Canvas size in cells; the render surface is allocated at this size.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Window size in cells; the canvas is centered inside it.
	DisplayWidth  int `yaml:"display_width"`
	DisplayHeight int `yaml:"display_height"`

	ManifestPath string `yaml:"manifest"`
	MainScript   string `yaml:"main_script"`
	OnUpdate     string `yaml:"on_update"`
	Webserver    bool   `yaml:"webserver"`
	Orientation  string `yaml:"orientation"`
}

// Per-key fallbacks applied when a key is absent from the file.
const (
	DefaultMainScript  = "main.lua"
	DefaultOnUpdate    = "update()"
	DefaultManifest    = ""
	DefaultOrientation = OrientationPortrait
)

// Default returns the settings a deck starts with before any file is read.
func Default() Settings {
	return Settings{
		Name:          "livedeck",
		Width:         80,
		Height:        24,
		DisplayWidth:  80,
		DisplayHeight: 24,
		ManifestPath:  "manifest.yaml",
		MainScript:    DefaultMainScript,
		OnUpdate:      DefaultOnUpdate,
		Webserver:     false,
		Orientation:   DefaultOrientation,
	}
}

// Adjustment records a value that was corrected after parsing.
type Adjustment struct {
	Field string
	From  int
	To    int
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s too small, resized %d -> %d", a.Field, a.From, a.To)
}

// clampDisplay enforces DisplayWidth >= Width and DisplayHeight >= Height.
func (s *Settings) clampDisplay() []Adjustment {
	var adj []Adjustment
	if s.Width > s.DisplayWidth {
		adj = append(adj, Adjustment{Field: "display_width", From: s.DisplayWidth, To: s.Width})
		s.DisplayWidth = s.Width
	}
	if s.Height > s.DisplayHeight {
		adj = append(adj, Adjustment{Field: "display_height", From: s.DisplayHeight, To: s.Height})
		s.DisplayHeight = s.Height
	}
	return adj
}
