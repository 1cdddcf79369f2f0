// Package asset tracks content files on disk and the subsystems that own
// them. A Store maps content categories to owners, parses the content
// manifest, and reloads the whole set as a single transaction: on failure it
// is either left exactly as it was or cleared, never half-populated.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/vovakirdan/livedeck/internal/core"
)

// Category is a content group declared in the manifest.
type Category string

// Manifest categories.
const (
	CategoryScripts      Category = "scripts"
	CategoryTextures     Category = "textures"
	CategoryFonts        Category = "fonts"
	CategorySounds       Category = "sounds"
	CategorySoundStreams Category = "soundstreams"
)

// CategoryConfig marks tracked files that are not manifest content: the
// settings file and the manifest itself. No owner can register for it.
const CategoryConfig Category = "config"

// Categories returns every known category in dispatch order.
func Categories() []Category {
	return []Category{
		CategoryScripts,
		CategoryTextures,
		CategoryFonts,
		CategorySounds,
		CategorySoundStreams,
	}
}

// ParseCategory resolves a manifest key.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Owner is implemented by the subsystems that hold loaded content.
// Implementations must tolerate repeated calls and must not panic; a failed
// reload is reported through the returned error only.
type Owner interface {
	// OnReload loads (or reloads) the asset's file.
	OnReload(a *Asset) error

	// OnAssetDestroyed releases whatever the owner holds for the asset.
	OnAssetDestroyed(a *Asset)

	// Clear drops everything the owner holds.
	Clear()
}

// Asset is a tracked file with the modification time of its last successful
// load.
type Asset struct {
	Name     string
	Path     string
	Category Category

	modTime time.Time
	loaded  bool
	owner   Owner
}

// New creates an unloaded asset.
func New(name, path string, category Category, owner Owner) *Asset {
	return &Asset{
		Name:     name,
		Path:     path,
		Category: category,
		owner:    owner,
	}
}

// Owner returns the subsystem responsible for the asset.
func (a *Asset) Owner() Owner {
	return a.owner
}

// ModTime returns the modification time recorded at the last successful load.
func (a *Asset) ModTime() time.Time {
	return a.modTime
}

// Loaded reports whether the asset's content is currently live in its owner.
func (a *Asset) Loaded() bool {
	return a.loaded
}

// MarkReloaded records a successful load at modification time t.
func (a *Asset) MarkReloaded(t time.Time) {
	a.modTime = t
	a.loaded = true
}

// MarkNotLoaded forces the next staleness check to report the asset as out of
// date without touching its recorded time.
func (a *Asset) MarkNotLoaded() {
	a.loaded = false
}

// Reload asks the owner to load the asset and records the file's modification
// time on success. The time is read before dispatch so a write racing with the
// load is picked up by the next check.
func (a *Asset) Reload() error {
	if a.owner == nil {
		return fmt.Errorf("%w: %s %q has no owner", core.ErrOwnerReload, a.Category, a.Name)
	}

	t, err := ModTime(a.Path)
	if err != nil {
		a.loaded = false
		return fmt.Errorf("%s %q: %w", a.Category, a.Name, err)
	}

	if err := a.owner.OnReload(a); err != nil {
		a.loaded = false
		return fmt.Errorf("%w: %s %q: %w", core.ErrOwnerReload, a.Category, a.Name, err)
	}

	a.MarkReloaded(t)
	return nil
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s/%s (%s)", a.Category, a.Name, a.Path)
}

// ModTime reads the current modification time of the file at path.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%s: %w", path, core.ErrFileMissing)
		}
		return time.Time{}, fmt.Errorf("%s: %w", path, err)
	}
	return info.ModTime(), nil
}

// IsOutOfDate reports whether the asset needs a reload: it is not loaded, its
// file is gone, or the file's modification time differs from the recorded
// one. It has no side effects.
func IsOutOfDate(a *Asset) bool {
	if !a.loaded {
		return true
	}
	t, err := ModTime(a.Path)
	if err != nil {
		return true
	}
	return !t.Equal(a.modTime)
}
