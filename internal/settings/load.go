package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/livedeck/internal/core"
)

// fileSettings mirrors Settings with pointer fields so absent keys can be
// told apart from zero values.
type fileSettings struct {
	Name          *string `yaml:"name"`
	Width         *int    `yaml:"width"`
	Height        *int    `yaml:"height"`
	DisplayWidth  *int    `yaml:"display_width"`
	DisplayHeight *int    `yaml:"display_height"`
	MainScript    *string `yaml:"main_script"`
	OnUpdate      *string `yaml:"on_update"`
	Manifest      *string `yaml:"manifest"`
	Webserver     *bool   `yaml:"webserver"`
	Orientation   *string `yaml:"orientation"`
}

// Load reads and parses the settings file at path. prev supplies the
// fallbacks for name, width and height. On any error the returned Settings is
// the zero value and prev is untouched.
func Load(path string, prev Settings) (Settings, []Adjustment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, nil, fmt.Errorf("settings %s: %w", path, core.ErrFileMissing)
		}
		return Settings{}, nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s, adj, err := Parse(data, prev)
	if err != nil {
		return Settings{}, nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, adj, nil
}

// Parse decodes settings YAML, applying per-key defaults and the display
// clamp. An empty document is valid and yields all defaults.
func Parse(data []byte, prev Settings) (Settings, []Adjustment, error) {
	var raw fileSettings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, nil, fmt.Errorf("%w: %w", core.ErrParseFailure, err)
	}

	s := Settings{
		Name:         stringOr(raw.Name, prev.Name),
		Width:        intOr(raw.Width, prev.Width),
		Height:       intOr(raw.Height, prev.Height),
		MainScript:   stringOr(raw.MainScript, DefaultMainScript),
		OnUpdate:     stringOr(raw.OnUpdate, DefaultOnUpdate),
		ManifestPath: stringOr(raw.Manifest, DefaultManifest),
		Orientation:  stringOr(raw.Orientation, DefaultOrientation),
	}
	// Display size defaults to the (possibly new) canvas size.
	s.DisplayWidth = intOr(raw.DisplayWidth, s.Width)
	s.DisplayHeight = intOr(raw.DisplayHeight, s.Height)
	if raw.Webserver != nil {
		s.Webserver = *raw.Webserver
	}

	if err := s.validate(); err != nil {
		return Settings{}, nil, err
	}

	return s, s.clampDisplay(), nil
}

func (s *Settings) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: canvas size must be positive, got %dx%d", core.ErrParseFailure, s.Width, s.Height)
	}
	switch s.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: unknown orientation %q", core.ErrParseFailure, s.Orientation)
	}
	return nil
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
