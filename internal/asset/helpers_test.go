package asset

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

// recordingOwner is an Owner that counts every call per asset name.
type recordingOwner struct {
	fail      map[string]error
	reloads   map[string]int
	destroyed map[string]int
	live      map[string]string
	clears    int
}

func newRecordingOwner() *recordingOwner {
	return &recordingOwner{
		fail:      make(map[string]error),
		reloads:   make(map[string]int),
		destroyed: make(map[string]int),
		live:      make(map[string]string),
	}
}

func (o *recordingOwner) OnReload(a *Asset) error {
	o.reloads[a.Name]++
	if err := o.fail[a.Name]; err != nil {
		return err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return err
	}
	o.live[a.Name] = string(data)
	return nil
}

func (o *recordingOwner) OnAssetDestroyed(a *Asset) {
	o.destroyed[a.Name]++
	delete(o.live, a.Name)
}

func (o *recordingOwner) Clear() {
	o.clears++
	o.live = make(map[string]string)
}

var errRejected = errors.New("rejected")

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// project is a temp directory with helpers for writing content files.
type project struct {
	t     *testing.T
	dir   string
	clock time.Time
}

func newProject(t *testing.T) *project {
	return &project{
		t:     t,
		dir:   t.TempDir(),
		clock: time.Now().Add(-time.Hour).Truncate(time.Second),
	}
}

func (p *project) path(rel string) string {
	return filepath.Join(p.dir, filepath.FromSlash(rel))
}

// write creates or replaces a file and gives it a strictly newer mod time so
// staleness checks never depend on filesystem timestamp granularity.
func (p *project) write(rel, content string) string {
	p.t.Helper()
	path := p.path(rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
	p.clock = p.clock.Add(time.Second)
	require.NoError(p.t, os.Chtimes(path, p.clock, p.clock))
	return path
}

func (p *project) remove(rel string) {
	p.t.Helper()
	require.NoError(p.t, os.Remove(p.path(rel)))
}

const baseManifest = `
scripts:
  main: scripts/main.yaml
textures:
  hero: textures/hero.txt
fonts:
  big: fonts/big.yaml
`

func (p *project) writeBase() string {
	p.write("scripts/main.yaml", "text: []")
	p.write("textures/hero.txt", "@")
	p.write("fonts/big.yaml", "height: 1")
	return p.write("manifest.yaml", baseManifest)
}

type owners struct {
	scripts  *recordingOwner
	textures *recordingOwner
	fonts    *recordingOwner
}

func newTestStore(t *testing.T) (*Store, owners) {
	t.Helper()
	o := owners{
		scripts:  newRecordingOwner(),
		textures: newRecordingOwner(),
		fonts:    newRecordingOwner(),
	}
	s := NewStore(quietLogger())
	require.NoError(t, s.RegisterOwner(CategoryScripts, o.scripts, Required))
	require.NoError(t, s.RegisterOwner(CategoryTextures, o.textures, Optional))
	require.NoError(t, s.RegisterOwner(CategoryFonts, o.fonts, Optional))
	return s, o
}

func chtimes(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
