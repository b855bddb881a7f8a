// Package mediastore abstracts the device media library: a paginated
// enumerator of audio assets and the permission gate in front of it.
// The indexer engine only ever sees these interfaces.
package mediastore

import "context"

// Asset is one audio entry in the device media store. IDs are stable for
// the lifetime of the underlying file: re-enumerating never assigns a new
// id to the same asset.
type Asset struct {
	ID       string
	URI      string
	Filename string
	ModTime  int64   // unix seconds
	Duration float64 // seconds, 0 when unknown
	Size     int64   // bytes
}

// ChangeProxy returns the cheap change-detection signal for the asset:
// its duration when known, otherwise its size.
func (a Asset) ChangeProxy() float64 {
	if a.Duration > 0 {
		return a.Duration
	}
	return float64(a.Size)
}

// Page is one slice of an enumeration.
type Page struct {
	Assets     []Asset
	NextCursor string
	HasMore    bool
}

// Enumerator lists the device's audio assets page by page. An empty cursor
// starts a fresh enumeration.
type Enumerator interface {
	ListAudioAssets(ctx context.Context, cursor string, limit int) (Page, error)
}

// PermissionService gates access to the media store.
type PermissionService interface {
	// RequestAccess returns whether reading the audio library is permitted.
	// A false result is not an error; the caller declines to scan.
	RequestAccess(ctx context.Context) (bool, error)
}
