package settings

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Folder filter modes.
const (
	FolderModeOff   = "off"
	FolderModeAllow = "allow"
	FolderModeDeny  = "deny"
)

// FolderFilter restricts indexing to (or away from) a set of top-level
// folder names.
type FolderFilter struct {
	Mode    string   `json:"mode"`
	Folders []string `json:"folders"`
}

func (f FolderFilter) sanitized() FolderFilter {
	switch f.Mode {
	case FolderModeAllow, FolderModeDeny:
	default:
		f.Mode = FolderModeOff
	}
	folders := make([]string, 0, len(f.Folders))
	for _, name := range f.Folders {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(folders, name) {
			folders = append(folders, name)
		}
	}
	f.Folders = folders
	return f
}

// Equal reports whether two filters select the same set of assets.
func (f FolderFilter) Equal(other FolderFilter) bool {
	return f.Mode == other.Mode && slices.Equal(f.Folders, other.Folders)
}

// Allows reports whether an asset at the given URI passes the filter.
func (f FolderFilter) Allows(uri string) bool {
	switch f.Mode {
	case FolderModeAllow:
		return slices.Contains(f.Folders, FolderFromURI(uri))
	case FolderModeDeny:
		return !slices.Contains(f.Folders, FolderFromURI(uri))
	default:
		return true
	}
}

// FolderFromURI extracts the name of the directory containing the asset.
func FolderFromURI(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	dir := filepath.Dir(path)
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return filepath.Base(dir)
}

// Duration filter modes.
const (
	DurationModeOff    = "off"
	DurationModeMin30  = "min30s"
	DurationModeMin60  = "min60s"
	DurationModeMin120 = "min120s"
	DurationModeCustom = "custom"
)

const (
	customDurationDefault = 180
	customDurationMax     = 1200
)

// DurationFilter excludes short assets from indexing.
type DurationFilter struct {
	Mode                 string  `json:"mode"`
	CustomMinimumSeconds float64 `json:"customMinimumSeconds"`
}

// DefaultDurationFilter is the filter applied when no document exists.
func DefaultDurationFilter() DurationFilter {
	return DurationFilter{Mode: DurationModeOff, CustomMinimumSeconds: customDurationDefault}
}

func (f DurationFilter) sanitized() DurationFilter {
	switch f.Mode {
	case DurationModeMin30, DurationModeMin60, DurationModeMin120, DurationModeCustom:
	default:
		f.Mode = DurationModeOff
	}
	if f.CustomMinimumSeconds <= 0 {
		f.CustomMinimumSeconds = customDurationDefault
	}
	if f.CustomMinimumSeconds > customDurationMax {
		f.CustomMinimumSeconds = customDurationMax
	}
	return f
}

// MinimumSeconds returns the effective threshold, 0 when the filter is off.
func (f DurationFilter) MinimumSeconds() float64 {
	switch f.Mode {
	case DurationModeMin30:
		return 30
	case DurationModeMin60:
		return 60
	case DurationModeMin120:
		return 120
	case DurationModeCustom:
		return f.CustomMinimumSeconds
	default:
		return 0
	}
}

// Allows reports whether an asset of the given duration passes the filter.
// Assets with unknown duration always pass.
func (f DurationFilter) Allows(seconds float64) bool {
	if seconds <= 0 {
		return true
	}
	return seconds >= f.MinimumSeconds()
}

// Label renders the filter for display.
func (f DurationFilter) Label() string {
	switch f.Mode {
	case DurationModeMin30:
		return "30 seconds"
	case DurationModeMin60:
		return "1 minute"
	case DurationModeMin120:
		return "2 minutes"
	case DurationModeCustom:
		return fmt.Sprintf("%.0f seconds", f.CustomMinimumSeconds)
	default:
		return "off"
	}
}
