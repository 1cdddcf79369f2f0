// Package game runs the main script and tracks whether the game is ready,
// running or broken. Game is also the owner of the scripts category: every
// script the store loads is compiled into the engine.
package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/asset"
	"github.com/vovakirdan/livedeck/internal/content"
	"github.com/vovakirdan/livedeck/internal/core"
	"github.com/vovakirdan/livedeck/internal/settings"
)

// ErrNoMainScript is returned by Reset when the configured main script is not
// loaded.
var ErrNoMainScript = errors.New("main script not loaded")

// State is the lifecycle state of a game.
type State int

const (
	StateNotReady State = iota
	StateReady
	StateRunning
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBroken:
		return "broken"
	default:
		return "not ready"
	}
}

// Game is the lifecycle of the running main script.
type Game struct {
	settings *settings.Settings
	engine   Engine
	log      *log.Logger

	scripts     map[string]string // entry name -> path
	systemFont  *content.Font
	ready       bool
	running     bool
	broken      bool
	reason      string
	reloadCount int
	frames      int
}

// New creates a game that reads its main script and update hook from st.
// The pointer is kept: settings reloads are seen without re-wiring.
func New(st *settings.Settings, engine Engine, logger *log.Logger) *Game {
	if logger == nil {
		logger = log.Default()
	}
	return &Game{
		settings:   st,
		engine:     engine,
		log:        logger,
		scripts:    make(map[string]string),
		systemFont: content.SystemFont(),
	}
}

// OnReload compiles a script. Every successful call counts toward the
// current cascade's reload count.
func (g *Game) OnReload(a *asset.Asset) error {
	src, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if err := g.engine.Compile(a.Name, src); err != nil {
		return err
	}
	g.scripts[a.Name] = a.Path
	g.reloadCount++
	g.log.Debug("script compiled", "name", a.Name)
	return nil
}

// OnAssetDestroyed drops a script from the engine.
func (g *Game) OnAssetDestroyed(a *asset.Asset) {
	g.engine.Forget(a.Name)
	delete(g.scripts, a.Name)
}

// Clear drops every script. A running game stops and is no longer ready;
// a broken game stays broken until the next Reset.
func (g *Game) Clear() {
	g.engine.ForgetAll()
	g.scripts = make(map[string]string)
	g.ready = false
	g.running = false
}

// MainScript resolves the configured main script to a loaded entry name.
// The setting may name the entry ("main"), the file ("main.yaml") or the
// file stem with another extension ("main.lua").
func (g *Game) MainScript() (string, bool) {
	want := strings.TrimSpace(g.settings.MainScript)
	if want == "" {
		return "", false
	}
	if _, ok := g.scripts[want]; ok {
		return want, true
	}

	stem := strings.TrimSuffix(want, filepath.Ext(want))
	var byStem string
	for name, path := range g.scripts {
		base := filepath.Base(path)
		if base == want {
			return name, true
		}
		if (byStem == "" || name < byStem) && (name == stem || strings.TrimSuffix(base, filepath.Ext(base)) == stem) {
			byStem = name
		}
	}
	return byStem, byStem != ""
}

// Reset restarts the game from the main script. Any failure breaks the game.
func (g *Game) Reset() error {
	g.broken = false
	g.reason = ""
	g.frames = 0

	main, ok := g.MainScript()
	if !ok {
		err := fmt.Errorf("%w: %q", ErrNoMainScript, g.settings.MainScript)
		g.Break(err.Error())
		return err
	}
	if err := g.engine.Start(main); err != nil {
		g.Break(err.Error())
		return err
	}

	g.ready = true
	g.running = true
	g.log.Info("game started", "main", main)
	return nil
}

// Break halts updates. The last rendered frame stays on screen until Reset.
func (g *Game) Break(reason string) {
	if !g.broken {
		g.log.Error("game broken", "reason", reason)
	}
	g.broken = true
	g.running = false
	g.reason = reason
}

// Update advances the running game by dt seconds through the on_update hook.
// A hook failure breaks the game.
func (g *Game) Update(dt float64) error {
	if !g.running || g.broken {
		return nil
	}
	if err := g.engine.Call(g.settings.OnUpdate, dt); err != nil {
		g.Break(err.Error())
		return err
	}
	g.frames++
	return nil
}

// Render draws the running game. Otherwise the surface is left as it is so a
// broken game keeps showing its last frame.
func (g *Game) Render(s *core.Surface) {
	if !g.running || g.broken {
		return
	}
	g.engine.Draw(s, g.systemFont)
}

// ResetSystemFont rebuilds the built-in font used for unstyled text.
func (g *Game) ResetSystemFont() {
	g.systemFont = content.SystemFont()
}

// SystemFont returns the built-in font.
func (g *Game) SystemFont() *content.Font {
	return g.systemFont
}

// ResetReloadCount zeroes the per-cascade script reload counter.
func (g *Game) ResetReloadCount() {
	g.reloadCount = 0
}

// ReloadCount returns how many scripts were loaded since ResetReloadCount.
func (g *Game) ReloadCount() int {
	return g.reloadCount
}

func (g *Game) IsReady() bool   { return g.ready }
func (g *Game) IsRunning() bool { return g.running }
func (g *Game) IsBroken() bool  { return g.broken }

// Reason returns why the game broke, if it is broken.
func (g *Game) Reason() string {
	return g.reason
}

// Frames returns the number of updates since the last Reset.
func (g *Game) Frames() int {
	return g.frames
}

// State returns the lifecycle state.
func (g *Game) State() State {
	switch {
	case g.broken:
		return StateBroken
	case g.running:
		return StateRunning
	case g.ready:
		return StateReady
	default:
		return StateNotReady
	}
}
