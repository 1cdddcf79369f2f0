package settings

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// project holds the starter project written by Scaffold.
//
//go:embed all:project
var project embed.FS

// SettingsFile is the settings file name inside a project directory.
const SettingsFile = "settings.yaml"

// Scaffold writes the starter project into dir and returns the written paths
// relative to dir. It refuses to run if any target file already exists, so a
// failed scaffold leaves dir untouched.
func Scaffold(dir string) ([]string, error) {
	root, err := fs.Sub(project, "project")
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	var files []string
	err = fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}
	sort.Strings(files)

	for _, rel := range files {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if _, statErr := os.Stat(target); statErr == nil {
			return nil, fmt.Errorf("scaffold: %s already exists", target)
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("scaffold: %w", statErr)
		}
	}

	for _, rel := range files {
		data, err := fs.ReadFile(root, rel)
		if err != nil {
			return nil, fmt.Errorf("scaffold: %w", err)
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("scaffold: cannot create directory: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("scaffold: cannot write %s: %w", target, err)
		}
	}

	return files, nil
}
