package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/livedeck/internal/core"
)

// Entry is one content file declared in the manifest.
type Entry struct {
	Name string
	Path string
}

// Manifest lists the content files of a project grouped by category.
type Manifest struct {
	Path    string
	Entries map[Category][]Entry // sorted by name within a category

	// Unknown holds top-level keys that are not content categories.
	Unknown []string
}

// Declared reports whether the manifest lists at least one entry for c.
func (m *Manifest) Declared(c Category) bool {
	return len(m.Entries[c]) > 0
}

// Len returns the total number of entries.
func (m *Manifest) Len() int {
	n := 0
	for _, entries := range m.Entries {
		n += len(entries)
	}
	return n
}

// entrySpec accepts either a bare path or a mapping with a path key:
//
//	hero: textures/hero.txt
//	hero: {path: textures/hero.txt}
type entrySpec struct {
	Path string
}

func (e *entrySpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Path)
	case yaml.MappingNode:
		var aux struct {
			Path string `yaml:"path"`
		}
		if err := node.Decode(&aux); err != nil {
			return err
		}
		e.Path = aux.Path
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a path or a mapping with a path", node.Line)
	}
}

// LoadManifest reads and parses the manifest at path. Entry paths are
// resolved relative to the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest %s: %w", path, core.ErrFileMissing)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	m, err := ParseManifest(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// ParseManifest decodes manifest YAML. Relative entry paths are joined to dir.
func ParseManifest(data []byte, dir string) (*Manifest, error) {
	m := &Manifest{Entries: make(map[Category][]Entry)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParseFailure, err)
	}
	if len(doc.Content) == 0 {
		return m, nil
	}

	root := doc.Content[0]
	if isNull(root) {
		return m, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: manifest must be a mapping of categories", core.ErrParseFailure, root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		cat, ok := ParseCategory(key.Value)
		if !ok {
			m.Unknown = append(m.Unknown, key.Value)
			continue
		}
		if _, dup := m.Entries[cat]; dup {
			return nil, fmt.Errorf("%w: line %d: category %q declared twice", core.ErrParseFailure, key.Line, cat)
		}

		entries, err := parseCategory(val, dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrParseFailure, cat, err)
		}
		m.Entries[cat] = entries
	}

	return m, nil
}

func parseCategory(node *yaml.Node, dir string) ([]Entry, error) {
	if isNull(node) {
		return []Entry{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of name to path", node.Line)
	}

	seen := make(map[string]bool)
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if name == "" {
			return nil, fmt.Errorf("line %d: empty entry name", node.Content[i].Line)
		}
		if seen[name] {
			return nil, fmt.Errorf("line %d: entry %q declared twice", node.Content[i].Line, name)
		}
		seen[name] = true

		var spec entrySpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		if spec.Path == "" {
			return nil, fmt.Errorf("entry %q: empty path", name)
		}

		path := filepath.FromSlash(spec.Path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		entries = append(entries, Entry{Name: name, Path: path})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
