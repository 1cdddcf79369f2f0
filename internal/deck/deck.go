// Package deck is the application context of a live project. A Deck owns the
// settings, the asset store, the content owners, the game and the render
// surface, and runs the reload cascade that keeps them consistent with the
// files on disk.
package deck

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/livedeck/internal/asset"
	"github.com/vovakirdan/livedeck/internal/content"
	"github.com/vovakirdan/livedeck/internal/core"
	"github.com/vovakirdan/livedeck/internal/game"
	"github.com/vovakirdan/livedeck/internal/settings"
)

// Options configures a Deck.
type Options struct {
	// Root is the project directory holding the settings file.
	Root string

	// SettingsFile is relative to Root. Defaults to settings.SettingsFile.
	SettingsFile string

	Logger    *log.Logger
	Journal   Journal
	Observers []Observer
	Screen    ScreenListener

	// Engine overrides the built-in scene engine.
	Engine game.Engine
}

// Deck is the live project. It is not safe for concurrent use except for
// Status, which may be called from any goroutine.
type Deck struct {
	root string
	log  *log.Logger

	settings      settings.Settings
	settingsAsset *asset.Asset

	store    *asset.Store
	game     *game.Game
	textures *content.Textures
	fonts    *content.Fonts
	audio    *content.Audio
	surface  *core.Surface

	journal   Journal
	observers []Observer
	screen    ScreenListener

	trace      []Phase
	diagnostic string
	halted     error
	last       *Cascade
	cascades   int
	failures   int
	status     atomic.Pointer[Status]
}

// New builds a deck for the project at opts.Root and registers every content
// owner. No file is read until the first ForceReload.
func New(opts Options) (*Deck, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("deck: resolve root %q: %w", opts.Root, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	file := opts.SettingsFile
	if file == "" {
		file = settings.SettingsFile
	}

	d := &Deck{
		root:      root,
		log:       logger,
		settings:  settings.Default(),
		store:     asset.NewStore(logger.WithPrefix("assets")),
		textures:  content.NewTextures(logger.WithPrefix("textures")),
		fonts:     content.NewFonts(logger.WithPrefix("fonts")),
		audio:     content.NewAudio(logger.WithPrefix("audio")),
		journal:   opts.Journal,
		observers: opts.Observers,
		screen:    opts.Screen,
	}
	d.settingsAsset = asset.New("settings", filepath.Join(root, file), asset.CategoryConfig, d)

	engine := opts.Engine
	if engine == nil {
		engine = game.NewSceneEngine(library{textures: d.textures, fonts: d.fonts, audio: d.audio}, logger.WithPrefix("scene"))
	}
	d.game = game.New(&d.settings, engine, logger.WithPrefix("game"))
	d.surface = core.NewSurface(d.settings.Width, d.settings.Height)

	registrations := []struct {
		category asset.Category
		owner    asset.Owner
		policy   asset.Policy
	}{
		{asset.CategoryScripts, d.game, asset.Required},
		{asset.CategoryTextures, d.textures, asset.Optional},
		{asset.CategoryFonts, d.fonts, asset.Optional},
		{asset.CategorySounds, d.audio, asset.Optional},
		{asset.CategorySoundStreams, d.audio, asset.Optional},
	}
	for _, r := range registrations {
		if err := d.store.RegisterOwner(r.category, r.owner, r.policy); err != nil {
			return nil, fmt.Errorf("deck: %w", err)
		}
	}

	d.publish(PhaseIdle)
	return d, nil
}

// ForceReload runs one reload cascade: settings first, then either the whole
// manifest or only the stale assets. On failure the game breaks and the last
// frame stays on the surface; the next call starts over from the top. A game
// halted by a failing update hook stays broken until a cascade reloads
// something.
func (d *Deck) ForceReload() error {
	c := Cascade{ID: uuid.New(), Started: time.Now()}
	d.trace = d.trace[:0]
	d.enter(PhaseIdle)

	reloadsBefore := d.store.Reloads()
	d.game.ResetReloadCount()

	err := d.cascade(&c)
	reloaded := d.store.Reloads() - reloadsBefore
	c.ManifestReloaded = slices.Contains(d.trace, PhaseReloadingManifest)
	if err == nil {
		switch {
		case d.halted != nil && reloaded == 0 && !c.SettingsReloaded && !c.ManifestReloaded:
			// Nothing changed since the update hook failed.
			err = d.halted
		case d.game.ReloadCount() > 0 || !d.game.IsRunning() || !d.game.IsReady():
			c.FullReset = true
			err = d.game.Reset()
		}
	}

	if err != nil {
		d.enter(PhaseBroken)
		d.game.Break(err.Error())
		if d.diagnostic != err.Error() {
			d.log.Error("reload failed", "cascade", c.ID, "error", err)
		}
		d.diagnostic = err.Error()
		d.failures++
	} else {
		d.enter(PhaseCommitted)
		if d.diagnostic != "" {
			d.log.Info("recovered", "cascade", c.ID)
		}
		d.diagnostic = ""
		d.halted = nil
	}

	c.Trace = append([]Phase(nil), d.trace...)
	c.Duration = time.Since(c.Started)
	c.Reloaded = reloaded
	c.Assets = d.store.Len()
	c.Loaded = d.store.Loaded()
	c.Err = err
	d.finish(c)
	return err
}

func (d *Deck) cascade(c *Cascade) error {
	d.enter(PhaseCheckingSettings)
	if asset.IsOutOfDate(d.settingsAsset) {
		d.enter(PhaseReloadingSettings)
		c.SettingsReloaded = true
		return d.reloadSettings()
	}

	d.enter(PhaseCheckingManifest)
	manifest, err := d.ManifestPath()
	if err != nil {
		d.store.Clear()
		return err
	}
	if d.store.NeedsFullReload(manifest) {
		d.enter(PhaseReloadingManifest)
	}
	return d.store.Refresh(manifest)
}

// reloadSettings dispatches the settings asset to OnReload and records its
// timestamp on success. A settings file that is gone clears the store.
func (d *Deck) reloadSettings() error {
	a := d.settingsAsset
	t, err := asset.ModTime(a.Path)
	if err != nil {
		a.MarkNotLoaded()
		if errors.Is(err, core.ErrFileMissing) {
			d.log.Error("settings file is missing, clearing assets", "path", a.Path)
			d.store.Clear()
		}
		return fmt.Errorf("settings: %w", err)
	}
	if err := d.OnReload(a); err != nil {
		a.MarkNotLoaded()
		return err
	}
	a.MarkReloaded(t)
	return nil
}

// OnReload handles the settings asset: read the settings, check the manifest
// they declare, resize the canvas and reload the manifest.
func (d *Deck) OnReload(a *asset.Asset) error {
	if err := d.ReadSettingsFile(a.Path); err != nil {
		return err
	}

	manifest, err := d.ManifestPath()
	if err == nil {
		_, err = asset.ModTime(manifest)
	}
	if err != nil {
		d.log.Error("manifest declared by settings is missing, clearing assets", "manifest", d.settings.ManifestPath)
		d.store.Clear()
		return err
	}

	w, h := d.ViewSize()
	if d.screen != nil {
		d.screen.OnScreenChange(w, h)
	}
	d.ResetRenderWindow(w, h)

	d.enter(PhaseReloadingManifest)
	return d.store.Reload(manifest)
}

// OnAssetDestroyed is part of asset.Owner; the settings asset is never
// tracked by the store.
func (d *Deck) OnAssetDestroyed(*asset.Asset) {}

// Clear is part of asset.Owner.
func (d *Deck) Clear() {}

// ReadSettingsFile parses the settings file and replaces the live settings.
// A missing file clears the store. On any failure the live settings are left
// as they were.
func (d *Deck) ReadSettingsFile(path string) error {
	next, adjustments, err := settings.Load(path, d.settings)
	if err != nil {
		if errors.Is(err, core.ErrFileMissing) {
			d.store.Clear()
		}
		return err
	}
	for _, adj := range adjustments {
		d.log.Warn(adj.String(), "field", adj.Field)
	}
	d.settings = next
	d.log.Info("settings loaded", "name", next.Name, "canvas", fmt.Sprintf("%dx%d", next.Width, next.Height),
		"display", fmt.Sprintf("%dx%d", next.DisplayWidth, next.DisplayHeight))
	return nil
}

// ManifestPath resolves the manifest declared by the settings against the
// project root.
func (d *Deck) ManifestPath() (string, error) {
	p := d.settings.ManifestPath
	if p == "" {
		return "", fmt.Errorf("manifest: none declared in settings: %w", core.ErrFileMissing)
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.root, p)
	}
	return p, nil
}

// ResetRenderWindow reallocates the render surface at the given size.
func (d *Deck) ResetRenderWindow(width, height int) {
	d.surface.Reset(width, height)
}

// ContextReset handles a lost display context: textures and fonts are marked
// not loaded so the next cascade reloads them from unchanged files, the
// system font is rebuilt and the surface is reallocated.
func (d *Deck) ContextReset() {
	n := d.store.SetAsNotLoaded(asset.CategoryTextures)
	n += d.store.SetAsNotLoaded(asset.CategoryFonts)
	d.game.ResetSystemFont()
	d.ResetRenderWindow(d.ViewSize())
	d.log.Info("display context reset", "assets", n)
	d.publish(d.phase())
}

// Update advances the game by dt seconds. A failing update breaks the game
// until a cascade reloads settings or content.
func (d *Deck) Update(dt float64) error {
	err := d.game.Update(dt)
	if err != nil {
		d.halted = err
		d.diagnostic = err.Error()
		d.publish(PhaseBroken)
	}
	return err
}

// Render draws the game onto the surface and returns it. A broken game
// leaves the last frame in place.
func (d *Deck) Render() *core.Surface {
	d.game.Render(d.surface)
	return d.surface
}

// Settings returns the live settings. The pointer stays valid across reloads.
func (d *Deck) Settings() *settings.Settings {
	return &d.settings
}

// ViewSize is the canvas size in cells.
func (d *Deck) ViewSize() (int, int) {
	return d.settings.Width, d.settings.Height
}

// DisplaySize is the window size in cells.
func (d *Deck) DisplaySize() (int, int) {
	return d.settings.DisplayWidth, d.settings.DisplayHeight
}

// Diagnostic returns the message of the last failure, or "" when healthy.
func (d *Deck) Diagnostic() string {
	return d.diagnostic
}

// LastCascade returns the most recent cascade.
func (d *Deck) LastCascade() (Cascade, bool) {
	if d.last == nil {
		return Cascade{}, false
	}
	return *d.last, true
}

// Status returns the latest published snapshot.
func (d *Deck) Status() Status {
	return *d.status.Load()
}

// Root is the absolute project directory.
func (d *Deck) Root() string { return d.root }

// SettingsPath is the settings file being watched.
func (d *Deck) SettingsPath() string { return d.settingsAsset.Path }

// Store is the asset store holding every manifest entry.
func (d *Deck) Store() *asset.Store { return d.store }

// Game is the lifecycle of the running scripts.
func (d *Deck) Game() *game.Game { return d.game }

// Textures owns the loaded sprites.
func (d *Deck) Textures() *content.Textures { return d.textures }

// Fonts owns the loaded bitmap fonts.
func (d *Deck) Fonts() *content.Fonts { return d.fonts }

// Audio owns the loaded sounds and streams.
func (d *Deck) Audio() *content.Audio { return d.audio }

// Surface is the render canvas, without drawing the game onto it.
func (d *Deck) Surface() *core.Surface { return d.surface }

func (d *Deck) enter(p Phase) {
	d.trace = append(d.trace, p)
	d.log.Debug("phase", "phase", p)
}

func (d *Deck) phase() Phase {
	if len(d.trace) == 0 {
		return PhaseIdle
	}
	return d.trace[len(d.trace)-1]
}

// finish records a cascade, publishes the new status and reports the
// cascade. The journal only receives cascades that changed something or
// whose outcome differs from the previous one, so an idle poll loop does not
// flood it.
func (d *Deck) finish(c Cascade) {
	prev := d.last
	d.last = &c
	d.cascades++
	d.publish(c.Trace[len(c.Trace)-1])

	for _, o := range d.observers {
		o.CascadeFinished(d.root, c)
	}

	if d.journal != nil && (prev == nil || c.Changed() || c.ErrorText() != prev.ErrorText()) {
		if err := d.journal.RecordCascade(d.root, c); err != nil {
			d.log.Warn("failed to record cascade", "cascade", c.ID, "error", err)
		}
	}
}

func (d *Deck) publish(p Phase) {
	st := &Status{
		Project:       d.root,
		Name:          d.settings.Name,
		State:         d.game.State().String(),
		Phase:         p.String(),
		Diagnostic:    d.diagnostic,
		Width:         d.settings.Width,
		Height:        d.settings.Height,
		DisplayWidth:  d.settings.DisplayWidth,
		DisplayHeight: d.settings.DisplayHeight,
		Orientation:   d.settings.Orientation,
		Webserver:     d.settings.Webserver,
		Assets:        d.store.Len(),
		Loaded:        d.store.Loaded(),
		Cascades:      d.cascades,
		Failures:      d.failures,
		UpdatedAt:     time.Now(),
	}
	if d.last != nil {
		st.LastCascade = summarize(*d.last)
	}
	d.status.Store(st)
}
