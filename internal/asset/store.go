package asset

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/livedeck/internal/core"
)

var (
	// ErrCategoryRegistered is returned when a category is registered again
	// with a different owner or policy.
	ErrCategoryRegistered = errors.New("category already registered")

	// ErrNoManifest is returned by ReloadStale before any manifest committed.
	ErrNoManifest = errors.New("no manifest loaded")
)

// Policy says whether a category must be present for a reload to succeed.
type Policy int

const (
	Required Policy = iota
	Optional
)

func (p Policy) String() string {
	if p == Required {
		return "required"
	}
	return "optional"
}

type registration struct {
	owner  Owner
	policy Policy
}

// Store is the registry of category owners and the set of live assets.
// It is not safe for concurrent use; a deck has exactly one mutator.
type Store struct {
	owners   map[Category]registration
	assets   []*Asset
	manifest *Asset
	reloads  int
	log      *log.Logger
}

// NewStore creates an empty store. A nil logger uses the package default.
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		owners: make(map[Category]registration),
		log:    logger,
	}
}

// RegisterOwner binds a category to its owner. Registering the same owner and
// policy again is a no-op; anything else for an already-bound category is
// rejected with ErrCategoryRegistered.
func (s *Store) RegisterOwner(category Category, owner Owner, policy Policy) error {
	if owner == nil {
		return fmt.Errorf("register %s: nil owner", category)
	}
	if category == CategoryConfig {
		return fmt.Errorf("register %s: reserved category", category)
	}
	if existing, ok := s.owners[category]; ok {
		if existing.owner == owner && existing.policy == policy {
			return nil
		}
		return fmt.Errorf("register %s: %w", category, ErrCategoryRegistered)
	}
	s.owners[category] = registration{owner: owner, policy: policy}
	return nil
}

// Policy returns the registration policy of a category.
func (s *Store) Policy(category Category) (Policy, bool) {
	reg, ok := s.owners[category]
	return reg.policy, ok
}

// Reload replaces the live asset set with the content of the manifest.
//
// Failures found before any owner is called (unreadable or malformed
// manifest, a required category not declared) leave the store untouched. A
// missing manifest file clears the store. A required owner rejecting its
// content clears the store. Optional owner failures are logged, the asset
// stays tracked as not loaded, and the remaining entries are still loaded.
func (s *Store) Reload(manifestPath string) error {
	modTime, err := ModTime(manifestPath)
	if err != nil {
		if errors.Is(err, core.ErrFileMissing) {
			s.log.Error("manifest file is missing, clearing assets", "path", manifestPath)
			s.Clear()
		}
		return fmt.Errorf("manifest: %w", err)
	}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	for _, key := range m.Unknown {
		s.log.Warn("ignoring unknown manifest category", "category", key, "manifest", manifestPath)
	}
	if err := s.checkRequired(m); err != nil {
		return err
	}

	plan := s.plan(m)

	// Point of no return: from here a required failure clears everything.
	kept := make(map[*Asset]bool, len(plan))
	for _, a := range plan {
		kept[a] = true
	}
	for _, old := range s.assets {
		if !kept[old] {
			old.owner.OnAssetDestroyed(old)
		}
	}
	s.assets = plan
	s.manifest = nil

	loaded := 0
	for _, a := range plan {
		if !IsOutOfDate(a) {
			continue
		}
		if err := a.Reload(); err != nil {
			if reg := s.owners[a.Category]; reg.policy == Required {
				s.log.Error("required asset failed to load, clearing assets", "asset", a.String(), "error", err)
				s.Clear()
				return err
			}
			s.log.Warn("optional asset failed to load", "asset", a.String(), "error", err)
			continue
		}
		loaded++
		s.reloads++
	}

	s.manifest = New("manifest", manifestPath, CategoryConfig, nil)
	s.manifest.MarkReloaded(modTime)

	s.log.Info("manifest reloaded", "path", manifestPath, "assets", len(plan), "loaded", loaded)
	return nil
}

// checkRequired verifies every required category is declared with entries.
func (s *Store) checkRequired(m *Manifest) error {
	for _, c := range Categories() {
		reg, ok := s.owners[c]
		if !ok || reg.policy != Required {
			continue
		}
		if !m.Declared(c) {
			return fmt.Errorf("manifest %s: %w: %s", m.Path, core.ErrMissingRequiredCategory, c)
		}
	}
	return nil
}

// plan builds the next asset set. Entries that match a committed asset by
// category, name and path reuse that asset so unchanged content is not
// reloaded.
func (s *Store) plan(m *Manifest) []*Asset {
	var next []*Asset
	for _, c := range Categories() {
		entries := m.Entries[c]
		reg, ok := s.owners[c]
		if !ok {
			if len(entries) > 0 {
				s.log.Warn("no owner registered for category, skipping", "category", c, "entries", len(entries))
			}
			continue
		}
		for _, e := range entries {
			if old, found := s.Lookup(c, e.Name); found && old.Path == e.Path {
				next = append(next, old)
				continue
			}
			next = append(next, New(e.Name, e.Path, c, reg.owner))
		}
	}
	return next
}

// ManifestOutOfDate reports whether the manifest must be reloaded in full:
// none is committed, or the committed manifest file changed or vanished.
func (s *Store) ManifestOutOfDate() bool {
	return s.manifest == nil || IsOutOfDate(s.manifest)
}

// ManifestPath returns the path of the committed manifest, if any.
func (s *Store) ManifestPath() string {
	if s.manifest == nil {
		return ""
	}
	return s.manifest.Path
}

// NeedsFullReload reports whether Refresh with manifestPath would reload the
// whole manifest rather than only the stale assets.
func (s *Store) NeedsFullReload(manifestPath string) bool {
	return s.ManifestOutOfDate() || s.manifest.Path != manifestPath
}

// Refresh reloads the whole manifest when the manifest file is stale or a
// different manifest is declared, and otherwise only the stale assets.
func (s *Store) Refresh(manifestPath string) error {
	if s.NeedsFullReload(manifestPath) {
		return s.Reload(manifestPath)
	}
	return s.ReloadStale()
}

// ReloadStale reloads only the assets whose files changed or that were marked
// not loaded. Required failures are returned joined; other content stays
// live. Optional failures are only logged.
func (s *Store) ReloadStale() error {
	if s.manifest == nil {
		return ErrNoManifest
	}

	var errs []error
	for _, a := range s.assets {
		if !IsOutOfDate(a) {
			continue
		}
		err := a.Reload()
		if err == nil {
			s.reloads++
			s.log.Info("asset reloaded", "asset", a.String())
			continue
		}
		if reg := s.owners[a.Category]; reg.policy == Required {
			s.log.Error("required asset failed to reload", "asset", a.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		s.log.Warn("optional asset failed to reload", "asset", a.String(), "error", err)
	}
	return errors.Join(errs...)
}

// Clear releases every tracked asset. Each asset's owner gets exactly one
// OnAssetDestroyed call, then every registered owner is cleared once. The
// committed manifest is forgotten so the next check reloads it in full.
func (s *Store) Clear() {
	for _, a := range s.assets {
		if a.owner != nil {
			a.owner.OnAssetDestroyed(a)
		}
	}
	s.assets = nil
	s.manifest = nil

	cleared := make(map[Owner]bool, len(s.owners))
	for _, c := range Categories() {
		reg, ok := s.owners[c]
		if !ok || cleared[reg.owner] {
			continue
		}
		cleared[reg.owner] = true
		reg.owner.Clear()
	}
}

// SetAsNotLoaded marks every asset of a category as needing a reload without
// removing it. Used when the display context is lost but files are unchanged.
func (s *Store) SetAsNotLoaded(category Category) int {
	n := 0
	for _, a := range s.assets {
		if a.Category == category {
			a.MarkNotLoaded()
			n++
		}
	}
	return n
}

// Lookup finds a tracked asset by category and name.
func (s *Store) Lookup(category Category, name string) (*Asset, bool) {
	for _, a := range s.assets {
		if a.Category == category && a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Assets returns the tracked assets in dispatch order.
func (s *Store) Assets() []*Asset {
	return append([]*Asset(nil), s.assets...)
}

// Len returns the number of tracked assets.
func (s *Store) Len() int {
	return len(s.assets)
}

// Reloads returns the number of successful asset loads since the store was
// created.
func (s *Store) Reloads() int {
	return s.reloads
}

// Loaded returns the number of tracked assets whose content is live.
func (s *Store) Loaded() int {
	n := 0
	for _, a := range s.assets {
		if a.loaded {
			n++
		}
	}
	return n
}
