package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/livedeck/internal/content"
	"github.com/vovakirdan/livedeck/internal/core"
)

var (
	// ErrScript is returned when a scene script does not compile.
	ErrScript = errors.New("script error")

	// ErrUnknownHook is returned when an update hook is not defined by the
	// running scene.
	ErrUnknownHook = errors.New("unknown hook")
)

// DefaultHook is always callable and advances sprites at normal speed.
const DefaultHook = "update"

// Library resolves content referenced by scenes.
type Library interface {
	Sprite(name string) (*content.Sprite, bool)
	Font(name string) (*content.Font, bool)
	Play(name string) error
}

// Engine compiles and runs scripts. The game drives it; it never touches the
// asset store.
type Engine interface {
	// Compile parses a script and holds it under name, replacing any
	// previous version. A failed compile keeps the previous version.
	Compile(name string, src []byte) error
	Forget(name string)
	ForgetAll()
	Has(name string) bool

	// Start discards the running scene and runs the named script.
	Start(main string) error

	// Call runs an update hook for dt seconds.
	Call(hook string, dt float64) error

	// Draw renders the running scene. Text without a loaded font uses
	// fallback.
	Draw(s *core.Surface, fallback *content.Font)
}

type vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type backgroundDoc struct {
	Rune  string `yaml:"rune"`
	Color string `yaml:"color"`
}

type spriteDoc struct {
	Texture  string  `yaml:"texture"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Color    string  `yaml:"color"`
	Velocity vec     `yaml:"velocity"`
}

type textDoc struct {
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Value string `yaml:"value"`
	Font  string `yaml:"font"`
	Color string `yaml:"color"`
}

// sceneDoc is one script file.
type sceneDoc struct {
	Background *backgroundDoc     `yaml:"background"`
	Include    []string           `yaml:"include"`
	Sprites    []spriteDoc        `yaml:"sprites"`
	Text       []textDoc          `yaml:"text"`
	Play       []string           `yaml:"play"`
	Hooks      map[string]float64 `yaml:"hooks"`
}

type background struct {
	r rune
	c core.Color
}

type script struct {
	bg      *background
	include []string
	sprites []sprite
	text    []label
	play    []string
	hooks   map[string]float64
}

type sprite struct {
	texture string
	pos     vec
	vel     vec
	color   core.Color
}

type label struct {
	x, y  int
	value string
	font  string
	color core.Color
}

// SceneEngine is the built-in engine. Scripts are YAML scene documents that
// place sprites and text, include other scripts and name update hooks with
// a speed factor.
type SceneEngine struct {
	lib     Library
	scripts map[string]*script
	log     *log.Logger

	// running scene
	bg      background
	sprites []sprite
	text    []label
	hooks   map[string]float64
	started bool
}

// NewSceneEngine creates an engine that resolves content through lib.
func NewSceneEngine(lib Library, logger *log.Logger) *SceneEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &SceneEngine{
		lib:     lib,
		scripts: make(map[string]*script),
		log:     logger,
	}
}

// Compile implements Engine.
func (e *SceneEngine) Compile(name string, src []byte) error {
	sc, err := compileScene(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrScript, name, err)
	}
	e.scripts[name] = sc
	return nil
}

func compileScene(src []byte) (*script, error) {
	var doc sceneDoc
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, err
	}

	sc := &script{
		include: doc.Include,
		play:    doc.Play,
		hooks:   make(map[string]float64, len(doc.Hooks)),
	}

	if doc.Background != nil {
		bg := background{r: ' '}
		if doc.Background.Rune != "" {
			if utf8.RuneCountInString(doc.Background.Rune) != 1 {
				return nil, fmt.Errorf("background rune %q must be a single character", doc.Background.Rune)
			}
			bg.r, _ = utf8.DecodeRuneInString(doc.Background.Rune)
		}
		c, err := color(doc.Background.Color)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		bg.c = c
		sc.bg = &bg
	}

	for i, s := range doc.Sprites {
		if s.Texture == "" {
			return nil, fmt.Errorf("sprite %d: missing texture", i)
		}
		c, err := color(s.Color)
		if err != nil {
			return nil, fmt.Errorf("sprite %d: %w", i, err)
		}
		sc.sprites = append(sc.sprites, sprite{
			texture: s.Texture,
			pos:     vec{X: s.X, Y: s.Y},
			vel:     s.Velocity,
			color:   c,
		})
	}

	for i, t := range doc.Text {
		c, err := color(t.Color)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		sc.text = append(sc.text, label{x: t.X, y: t.Y, value: t.Value, font: t.Font, color: c})
	}

	for name, speed := range doc.Hooks {
		name = HookName(name)
		if name == "" {
			return nil, errors.New("hook with empty name")
		}
		if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
			return nil, fmt.Errorf("hook %q: invalid speed %v", name, speed)
		}
		sc.hooks[name] = speed
	}

	return sc, nil
}

func color(name string) (core.Color, error) {
	c, ok := core.ParseColor(name)
	if !ok {
		return 0, fmt.Errorf("unknown color %q", name)
	}
	return c, nil
}

// Forget implements Engine.
func (e *SceneEngine) Forget(name string) {
	delete(e.scripts, name)
}

// ForgetAll implements Engine. The running scene is dropped too.
func (e *SceneEngine) ForgetAll() {
	e.scripts = make(map[string]*script)
	e.stop()
}

// Has implements Engine.
func (e *SceneEngine) Has(name string) bool {
	_, ok := e.scripts[name]
	return ok
}

func (e *SceneEngine) stop() {
	e.bg = background{r: ' '}
	e.sprites = nil
	e.text = nil
	e.hooks = nil
	e.started = false
}

// Start implements Engine. Includes are resolved depth first; the including
// script is applied after its includes so it can override their background
// and hooks.
func (e *SceneEngine) Start(main string) error {
	e.stop()

	order, err := e.resolve(main, nil, make(map[string]bool))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}

	e.hooks = map[string]float64{DefaultHook: 1}
	var cues []string
	for _, sc := range order {
		if sc.bg != nil {
			e.bg = *sc.bg
		}
		e.sprites = append(e.sprites, sc.sprites...)
		e.text = append(e.text, sc.text...)
		for name, speed := range sc.hooks {
			e.hooks[name] = speed
		}
		cues = append(cues, sc.play...)
	}
	e.started = true

	for _, cue := range cues {
		if err := e.lib.Play(cue); err != nil {
			e.log.Warn("scene cue not played", "cue", cue, "error", err)
		}
	}
	return nil
}

func (e *SceneEngine) resolve(name string, stack []string, done map[string]bool) ([]*script, error) {
	for _, s := range stack {
		if s == name {
			return nil, fmt.Errorf("include cycle: %s -> %s", strings.Join(stack, " -> "), name)
		}
	}
	if done[name] {
		return nil, nil
	}
	sc, ok := e.scripts[name]
	if !ok {
		if len(stack) == 0 {
			return nil, fmt.Errorf("script %q is not loaded", name)
		}
		return nil, fmt.Errorf("%s includes unknown script %q", stack[len(stack)-1], name)
	}

	stack = append(stack, name)
	var order []*script
	for _, inc := range sc.include {
		sub, err := e.resolve(inc, stack, done)
		if err != nil {
			return nil, err
		}
		order = append(order, sub...)
	}
	done[name] = true
	return append(order, sc), nil
}

// Call implements Engine. Every sprite moves by velocity * dt * speed.
func (e *SceneEngine) Call(hook string, dt float64) error {
	if !e.started {
		return fmt.Errorf("%w: no scene running", ErrScript)
	}
	name := HookName(hook)
	speed, ok := e.hooks[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}
	step := dt * speed
	for i := range e.sprites {
		e.sprites[i].pos.X += e.sprites[i].vel.X * step
		e.sprites[i].pos.Y += e.sprites[i].vel.Y * step
	}
	return nil
}

// Draw implements Engine. Sprites wrap around the surface edges.
func (e *SceneEngine) Draw(s *core.Surface, fallback *content.Font) {
	s.Fill(e.bg.r, e.bg.c)

	w, h := s.Width(), s.Height()
	for _, sp := range e.sprites {
		tex, ok := e.lib.Sprite(sp.texture)
		if !ok {
			continue
		}
		x := core.Wrap(int(math.Floor(sp.pos.X)), w)
		y := core.Wrap(int(math.Floor(sp.pos.Y)), h)
		s.Blit(x, y, tex.Rows, sp.color)
		if x+tex.Width > w {
			s.Blit(x-w, y, tex.Rows, sp.color)
		}
	}

	for _, t := range e.text {
		font := fallback
		if t.font != "" {
			if f, ok := e.lib.Font(t.font); ok {
				font = f
			}
		}
		font.Draw(s, t.x, t.y, t.value, t.color)
	}
}

// Hooks returns the hook names of the running scene.
func (e *SceneEngine) Hooks() []string {
	names := make([]string, 0, len(e.hooks))
	for name := range e.hooks {
		names = append(names, name)
	}
	return names
}

// HookName normalizes an update hook reference: "update()" and " update "
// both name the update hook.
func HookName(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexByte(ref, '('); i >= 0 {
		ref = ref[:i]
	}
	return strings.TrimSpace(ref)
}
