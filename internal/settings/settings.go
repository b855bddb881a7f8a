// Package settings persists the small indexer preference documents:
// auto-scan, folder filters and the minimum-duration filter. Each document
// is a standalone JSON file loaded lazily and memoized; loads are safe to
// race and sets persist immediately.
package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

const (
	appName            = "trackdex"
	autoScanFileName   = "indexer-auto-scan.json"
	folderFilterFile   = "folder-filters.json"
	durationFilterFile = "duration-filter.json"
)

// Settings owns the three preference documents. onChange, when set, is
// invoked after a filter document changes value; the caller wires it to a
// re-index trigger.
type Settings struct {
	dir      string
	onChange func()

	autoScan autoScanDoc
	folder   folderDoc
	duration durationDoc
}

type autoScanDoc struct {
	mu      sync.Mutex
	loaded  bool
	enabled bool
}

type folderDoc struct {
	mu     sync.Mutex
	loaded bool
	value  FolderFilter
}

type durationDoc struct {
	mu     sync.Mutex
	loaded bool
	value  DurationFilter
}

// New creates a Settings rooted at dir; an empty dir uses the user config
// directory. The directory is created on the first write.
func New(dir string, onChange func()) *Settings {
	if dir == "" {
		dir = filepath.Join(xdg.ConfigHome, appName)
	}
	return &Settings{dir: dir, onChange: onChange}
}

// AutoScanEnabled lazily loads and returns the auto-scan preference.
// Defaults to enabled when the document is missing or unreadable.
func (s *Settings) AutoScanEnabled() bool {
	s.autoScan.mu.Lock()
	defer s.autoScan.mu.Unlock()

	if !s.autoScan.loaded {
		var doc struct {
			Enabled *bool `json:"enabled"`
		}
		s.autoScan.enabled = true
		if readJSON(filepath.Join(s.dir, autoScanFileName), &doc) == nil && doc.Enabled != nil {
			s.autoScan.enabled = *doc.Enabled
		}
		s.autoScan.loaded = true
	}
	return s.autoScan.enabled
}

// SetAutoScanEnabled persists the auto-scan preference.
func (s *Settings) SetAutoScanEnabled(enabled bool) error {
	s.autoScan.mu.Lock()
	defer s.autoScan.mu.Unlock()

	s.autoScan.enabled = enabled
	s.autoScan.loaded = true
	return s.writeJSON(autoScanFileName, struct {
		Enabled bool `json:"enabled"`
	}{enabled})
}

// FolderFilter lazily loads and returns the folder filter document.
func (s *Settings) FolderFilter() FolderFilter {
	s.folder.mu.Lock()
	defer s.folder.mu.Unlock()

	if !s.folder.loaded {
		var doc FolderFilter
		if readJSON(filepath.Join(s.dir, folderFilterFile), &doc) == nil {
			s.folder.value = doc.sanitized()
		}
		s.folder.loaded = true
	}
	return s.folder.value
}

// SetFolderFilter persists the folder filter and triggers a re-index when
// the value changed.
func (s *Settings) SetFolderFilter(f FolderFilter) error {
	s.folder.mu.Lock()
	f = f.sanitized()
	changed := !s.folder.loaded || !s.folder.value.Equal(f)
	s.folder.value = f
	s.folder.loaded = true
	err := s.writeJSON(folderFilterFile, f)
	s.folder.mu.Unlock()

	if err == nil && changed {
		s.notify()
	}
	return err
}

// DurationFilter lazily loads and returns the duration filter document.
func (s *Settings) DurationFilter() DurationFilter {
	s.duration.mu.Lock()
	defer s.duration.mu.Unlock()

	if !s.duration.loaded {
		s.duration.value = DefaultDurationFilter()
		var doc DurationFilter
		if readJSON(filepath.Join(s.dir, durationFilterFile), &doc) == nil {
			s.duration.value = doc.sanitized()
		}
		s.duration.loaded = true
	}
	return s.duration.value
}

// SetDurationFilter persists the duration filter and triggers a re-index
// when the value changed.
func (s *Settings) SetDurationFilter(f DurationFilter) error {
	s.duration.mu.Lock()
	f = f.sanitized()
	changed := !s.duration.loaded || s.duration.value != f
	s.duration.value = f
	s.duration.loaded = true
	err := s.writeJSON(durationFilterFile, f)
	s.duration.mu.Unlock()

	if err == nil && changed {
		s.notify()
	}
	return err
}

func (s *Settings) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("malformed settings document")
	}
	return nil
}

func (s *Settings) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o600)
}
