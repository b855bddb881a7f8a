package mediastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Audio file extensions recognized by the filesystem enumerator.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".m4a":  true,
	".mp4":  true,
	".wav":  true,
}

// IsAudioFile returns true if the path has a recognized audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FSLibrary enumerates audio files under a set of root directories,
// presenting them as media-store assets with path-derived stable ids.
//
// The walker never decodes audio, so Duration stays 0 (unknown): change
// detection falls back to file size, and the minimum-duration filter lets
// every asset through. Duration-based filtering only takes effect with
// enumerators that can supply durations.
type FSLibrary struct {
	roots []string

	mu       sync.Mutex
	snapshot []Asset // populated on the first page of an enumeration
}

// NewFSLibrary creates an enumerator over the given roots.
func NewFSLibrary(roots []string) *FSLibrary {
	return &FSLibrary{roots: roots}
}

// Roots returns the configured root directories.
func (l *FSLibrary) Roots() []string {
	return l.roots
}

// RequestAccess reports whether every configured root can be opened for
// reading. No roots means no access.
func (l *FSLibrary) RequestAccess(_ context.Context) (bool, error) {
	if len(l.roots) == 0 {
		return false, nil
	}
	for _, root := range l.roots {
		f, err := os.Open(root)
		if err != nil {
			return false, nil //nolint:nilerr // unreadable root means access denied, not failure
		}
		f.Close()
	}
	return true, nil
}

// ListAudioAssets serves fixed-size pages over a walk of the roots. An
// empty cursor re-walks the filesystem; subsequent cursors page through
// the snapshot taken at that walk.
func (l *FSLibrary) ListAudioAssets(ctx context.Context, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 500
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	offset := 0
	if cursor == "" {
		snapshot, err := l.walk(ctx)
		if err != nil {
			return Page{}, err
		}
		l.snapshot = snapshot
	} else {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(l.snapshot) {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		offset = n
	}

	end := offset + limit
	if end > len(l.snapshot) {
		end = len(l.snapshot)
	}

	page := Page{Assets: l.snapshot[offset:end]}
	if end < len(l.snapshot) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (l *FSLibrary) walk(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	for _, root := range l.roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Skip unreadable entries - intentionally continuing to scan other paths
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !IsAudioFile(path) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}

			assets = append(assets, Asset{
				ID:       AssetID(path),
				URI:      "file://" + path,
				Filename: filepath.Base(path),
				ModTime:  info.ModTime().Unix(),
				Size:     info.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return assets, nil
}

// AssetID derives the stable id for a file path. It depends on the path
// alone, so edits to the file never change its identity.
func AssetID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:24]
}
