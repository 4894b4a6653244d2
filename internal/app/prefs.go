package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Avatar hat variants. The enumeration is closed: Read never returns anything
// outside it.
const (
	HatClassic    = "hat_classic"
	HatScholar    = "hat_scholar"
	HatStrategist = "hat_strategist"

	DefaultHat = HatClassic
)

type HatInfo struct {
	ID   string
	Name string
}

// HatLibrary is the picker order.
var HatLibrary = []HatInfo{
	{ID: HatClassic, Name: "Classic Top Hat"},
	{ID: HatScholar, Name: "Scholar Cap"},
	{ID: HatStrategist, Name: "Strategist Hat"},
}

// legacyHats maps identifiers from older releases to current ones. Migration
// happens on read only; legacy ids are never written back.
var legacyHats = map[string]string{
	"default": HatClassic,
	"wizard":  HatScholar,
	"cowboy":  HatStrategist,
}

// IsHat reports membership in the current enumeration.
func IsHat(id string) bool {
	for _, h := range HatLibrary {
		if h.ID == id {
			return true
		}
	}
	return false
}

// HatName returns the display name for a variant id, normalizing first.
func HatName(id string) string {
	id = NormalizeHat(id)
	for _, h := range HatLibrary {
		if h.ID == id {
			return h.Name
		}
	}
	return ""
}

// NormalizeHat is total: legacy ids migrate, current ids pass through, and
// anything unrecognized falls back to the default. No error is ever surfaced
// for an invalid persisted value.
func NormalizeHat(id string) string {
	if IsHat(id) {
		return id
	}
	if current, ok := legacyHats[id]; ok {
		return current
	}
	return DefaultHat
}

const prefsFileName = "hat.yml"

type prefsFile struct {
	SelectedHat string `yaml:"selected-hat"`
}

// PreferenceStore persists the selected hat in a file shared by every running
// client for the same user. A change fans out on two channels: other
// processes see the file write through their fsnotify watchers, and
// same-process subscribers are called directly, since a watcher is not
// guaranteed to report a process's own write. Subscribers must be idempotent;
// redundant notifications carry the same normalized value.
type PreferenceStore struct {
	mu     sync.Mutex
	path   string
	logger *Logger
	subs   map[int]func(hat string)
	nextID int
}

func NewPreferenceStore(dataDir string, logger *Logger) *PreferenceStore {
	return &PreferenceStore{
		path:   filepath.Join(dataDir, prefsFileName),
		logger: logger,
		subs:   map[int]func(string){},
	}
}

// Read returns the persisted variant, silently normalized. Missing file,
// unreadable yaml, and unknown ids all collapse to a valid variant.
func (s *PreferenceStore) Read() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return DefaultHat
	}
	var pf prefsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return DefaultHat
	}
	return NormalizeHat(pf.SelectedHat)
}

// Write validates, persists, and broadcasts. Unknown ids are rejected before
// touching the file.
func (s *PreferenceStore) Write(id string) error {
	if !IsHat(id) {
		return validationErr("hat", "unknown hat variant: "+id)
	}
	data, err := yaml.Marshal(prefsFile{SelectedHat: id})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return err
	}
	s.broadcast(id)
	return nil
}

// Subscribe registers a same-process listener and returns its cancel func.
func (s *PreferenceStore) Subscribe(fn func(hat string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *PreferenceStore) broadcast(id string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	normalized := NormalizeHat(id)
	for _, fn := range fns {
		fn(normalized)
	}
}

// Watch re-broadcasts when another process rewrites the preference file.
// Blocks until ctx is done or the watcher fails.
func (s *PreferenceStore) Watch(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors and atomic writers replace the file, which
	// drops a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.broadcast(s.Read())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.logger != nil {
				s.logger.Warn("preference watcher error", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
