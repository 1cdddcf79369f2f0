package game

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/asset"
	"github.com/vovakirdan/livedeck/internal/content"
	"github.com/vovakirdan/livedeck/internal/core"
	"github.com/vovakirdan/livedeck/internal/settings"
)

// stubLibrary serves fixed sprites and fonts and records played cues.
type stubLibrary struct {
	sprites map[string]*content.Sprite
	fonts   map[string]*content.Font
	played  []string
}

func newStubLibrary() *stubLibrary {
	return &stubLibrary{
		sprites: map[string]*content.Sprite{
			"dot": {Rows: []string{"o"}, Width: 1, Height: 1},
		},
		fonts: make(map[string]*content.Font),
	}
}

func (l *stubLibrary) Sprite(name string) (*content.Sprite, bool) {
	s, ok := l.sprites[name]
	return s, ok
}

func (l *stubLibrary) Font(name string) (*content.Font, bool) {
	f, ok := l.fonts[name]
	return f, ok
}

func (l *stubLibrary) Play(name string) error {
	if name == "missing" {
		return errors.New("no such cue")
	}
	l.played = append(l.played, name)
	return nil
}

type fixture struct {
	t   *testing.T
	dir string
	st  *settings.Settings
	lib *stubLibrary
	g   *Game
}

func newFixture(t *testing.T) *fixture {
	st := settings.Default()
	st.MainScript = "main"
	lib := newStubLibrary()
	logger := log.New(io.Discard)
	return &fixture{
		t:   t,
		dir: t.TempDir(),
		st:  &st,
		lib: lib,
		g:   New(&st, NewSceneEngine(lib, logger), logger),
	}
}

// load writes a script file and loads it through an asset owned by the game.
func (f *fixture) load(name, file, src string) (*asset.Asset, error) {
	f.t.Helper()
	path := filepath.Join(f.dir, file)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		f.t.Fatalf("WriteFile() failed: %v", err)
	}
	a := asset.New(name, path, asset.CategoryScripts, f.g)
	return a, a.Reload()
}

const movingDot = `
background: {rune: ".", color: gray}
sprites:
  - texture: dot
    x: 0
    y: 1
    velocity: {x: 2, y: 0}
text:
  - {x: 0, y: 0, value: "hi"}
play: [beep, missing]
hooks:
  turbo(): 3
`

func TestGameLifecycle(t *testing.T) {
	f := newFixture(t)
	g := f.g

	if g.State() != StateNotReady {
		t.Fatalf("Expected not ready, got %s", g.State())
	}

	if _, err := f.load("main", "main.yaml", movingDot); err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if g.State() != StateRunning || !g.IsReady() {
		t.Fatalf("Expected running, got %s", g.State())
	}
	if len(f.lib.played) != 1 || f.lib.played[0] != "beep" {
		t.Errorf("Expected beep cue only, got %v", f.lib.played)
	}

	s := core.NewSurface(6, 3)
	g.Render(s)
	if got := s.Row(1); got != "o....." {
		t.Errorf("Initial row 1: got %q", got)
	}
	if got := s.Row(0); got != "hi...." {
		t.Errorf("Initial row 0: got %q", got)
	}

	if err := g.Update(1); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	g.Render(s)
	if got := s.Row(1); got != "..o..." {
		t.Errorf("After update row 1: got %q", got)
	}
	if g.Frames() != 1 {
		t.Errorf("Expected 1 frame, got %d", g.Frames())
	}
}

func TestBrokenGameKeepsLastFrame(t *testing.T) {
	f := newFixture(t)
	if _, err := f.load("main", "main.yaml", movingDot); err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	if err := f.g.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}

	s := core.NewSurface(6, 3)
	f.g.Render(s)
	before := s.String()

	f.g.Break("script exploded")
	if f.g.State() != StateBroken || f.g.Reason() != "script exploded" {
		t.Fatalf("Expected broken with reason, got %s %q", f.g.State(), f.g.Reason())
	}
	if err := f.g.Update(1); err != nil {
		t.Errorf("Update() on a broken game should be a no-op, got %v", err)
	}
	f.g.Render(s)
	if s.String() != before {
		t.Error("Expected broken game to leave the surface untouched")
	}

	if err := f.g.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if f.g.State() != StateRunning {
		t.Errorf("Expected running after reset, got %s", f.g.State())
	}
}

func TestUpdateHooks(t *testing.T) {
	f := newFixture(t)
	if _, err := f.load("main", "main.yaml", movingDot); err != nil {
		t.Fatalf("load() failed: %v", err)
	}

	f.st.OnUpdate = "turbo()"
	if err := f.g.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if err := f.g.Update(0.5); err != nil {
		t.Fatalf("Update(turbo) failed: %v", err)
	}
	s := core.NewSurface(6, 3)
	f.g.Render(s)
	if got := s.Row(1); got != "...o.." {
		t.Errorf("Expected turbo to move 3 cells, got %q", got)
	}

	f.st.OnUpdate = "explode()"
	err := f.g.Update(1)
	if !errors.Is(err, ErrUnknownHook) {
		t.Fatalf("Expected ErrUnknownHook, got %v", err)
	}
	if !f.g.IsBroken() {
		t.Error("Expected an unknown hook to break the game")
	}
}

func TestResetWithoutMainScript(t *testing.T) {
	f := newFixture(t)
	if _, err := f.load("hud", "hud.yaml", "text: []"); err != nil {
		t.Fatalf("load() failed: %v", err)
	}

	err := f.g.Reset()
	if !errors.Is(err, ErrNoMainScript) {
		t.Fatalf("Expected ErrNoMainScript, got %v", err)
	}
	if f.g.State() != StateBroken {
		t.Errorf("Expected broken, got %s", f.g.State())
	}
}

func TestMainScriptMatching(t *testing.T) {
	tests := []struct {
		setting string
		want    string
		found   bool
	}{
		{"main", "main", true},
		{"main.yaml", "main", true},
		{"main.lua", "main", true},
		{"intro.yaml", "start", true},
		{"hud", "hud", true},
		{"credits.lua", "", false},
		{"", "", false},
	}

	f := newFixture(t)
	for _, s := range []struct{ name, file string }{
		{"main", "main.yaml"},
		{"start", "intro.yaml"},
		{"hud", "hud.yaml"},
	} {
		if _, err := f.load(s.name, s.file, "text: []"); err != nil {
			t.Fatalf("load(%s) failed: %v", s.name, err)
		}
	}

	for _, tt := range tests {
		f.st.MainScript = tt.setting
		got, ok := f.g.MainScript()
		if got != tt.want || ok != tt.found {
			t.Errorf("MainScript(%q) = %q, %v; want %q, %v", tt.setting, got, ok, tt.want, tt.found)
		}
	}
}

func TestReloadCount(t *testing.T) {
	f := newFixture(t)
	a, err := f.load("main", "main.yaml", "text: []")
	if err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	if f.g.ReloadCount() != 1 {
		t.Errorf("Expected reload count 1, got %d", f.g.ReloadCount())
	}

	f.g.ResetReloadCount()
	if f.g.ReloadCount() != 0 {
		t.Errorf("Expected reload count 0 after reset, got %d", f.g.ReloadCount())
	}

	if err := os.WriteFile(a.Path, []byte("text: ["), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := f.g.OnReload(a); !errors.Is(err, ErrScript) {
		t.Errorf("Expected ErrScript, got %v", err)
	}
	if f.g.ReloadCount() != 0 {
		t.Errorf("Expected failed compile not to count, got %d", f.g.ReloadCount())
	}
}

func TestClearStopsGame(t *testing.T) {
	f := newFixture(t)
	a, err := f.load("main", "main.yaml", movingDot)
	if err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	if err := f.g.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}

	f.g.OnAssetDestroyed(a)
	f.g.Clear()
	if f.g.State() != StateNotReady {
		t.Errorf("Expected not ready after Clear, got %s", f.g.State())
	}
	if _, ok := f.g.MainScript(); ok {
		t.Error("Expected main script forgotten")
	}
}

func TestResetSystemFont(t *testing.T) {
	f := newFixture(t)
	old := f.g.SystemFont()
	f.g.ResetSystemFont()
	if f.g.SystemFont() == old {
		t.Error("Expected a rebuilt system font")
	}
}

func TestSceneIncludes(t *testing.T) {
	lib := newStubLibrary()
	e := NewSceneEngine(lib, log.New(io.Discard))

	mustCompile := func(name, src string) {
		t.Helper()
		if err := e.Compile(name, []byte(src)); err != nil {
			t.Fatalf("Compile(%s) failed: %v", name, err)
		}
	}
	mustCompile("base", "background: {rune: \"-\"}\ntext: [{x: 0, y: 0, value: base}]\nhooks: {slow: 0.5}\n")
	mustCompile("main", "include: [base]\nbackground: {rune: \"=\"}\nhooks: {slow: 0.25}\n")

	if err := e.Start("main"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	s := core.NewSurface(6, 1)
	e.Draw(s, content.SystemFont())
	if got := s.Row(0); got != "base==" {
		t.Errorf("Expected included text over main background, got %q", got)
	}
	if e.hooks["slow"] != 0.25 {
		t.Errorf("Expected main to override included hook, got %v", e.hooks["slow"])
	}
}

func TestSceneIncludeErrors(t *testing.T) {
	e := NewSceneEngine(newStubLibrary(), log.New(io.Discard))
	_ = e.Compile("a", []byte("include: [b]"))
	_ = e.Compile("b", []byte("include: [a]"))
	_ = e.Compile("c", []byte("include: [ghost]"))

	err := e.Start("a")
	if !errors.Is(err, ErrScript) || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Expected include cycle error, got %v", err)
	}
	if err := e.Start("c"); !errors.Is(err, ErrScript) {
		t.Errorf("Expected unknown include error, got %v", err)
	}
	if err := e.Start("nobody"); !errors.Is(err, ErrScript) {
		t.Errorf("Expected unknown script error, got %v", err)
	}
	if err := e.Call(DefaultHook, 1); !errors.Is(err, ErrScript) {
		t.Errorf("Expected error calling a hook with no scene, got %v", err)
	}
}

func TestSceneCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad yaml", "sprites: ["},
		{"unknown color", "text: [{value: x, color: plaid}]"},
		{"sprite without texture", "sprites: [{x: 1}]"},
		{"wide background", "background: {rune: ab}"},
		{"negative speed", "hooks: {update: -1}"},
		{"empty hook", "hooks: {\"()\": 1}"},
	}

	e := NewSceneEngine(newStubLibrary(), log.New(io.Discard))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Compile("x", []byte(tt.src)); !errors.Is(err, ErrScript) {
				t.Errorf("Expected ErrScript, got %v", err)
			}
			if e.Has("x") {
				t.Error("Expected failed compile not to register the script")
			}
		})
	}
}

func TestHookName(t *testing.T) {
	tests := map[string]string{
		"update()":  "update",
		" update ":  "update",
		"turbo(2)":  "turbo",
		"":          "",
		"tick ( ) ": "tick",
	}
	for in, want := range tests {
		if got := HookName(in); got != want {
			t.Errorf("HookName(%q) = %q, want %q", in, got, want)
		}
	}
}
