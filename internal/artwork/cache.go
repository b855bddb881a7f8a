// Package artwork persists embedded cover images to a content-addressed
// on-disk cache and hands back stable file references.
package artwork

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for embedded artwork
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/nfnt/resize"

	"github.com/lvasseur/trackdex/internal/fingerprint"
)

const (
	cacheDirName = "trackdex/artwork"

	// Images wider than this are downscaled before the cache write.
	maxArtworkWidth = 1024

	jpegQuality = 90
)

// Payload is an artwork input: either inline image bytes or a reference to
// an image already on disk. A zero Payload means "no artwork".
type Payload struct {
	Data []byte
	Ref  string
}

// Empty reports whether the payload carries neither data nor a reference.
func (p Payload) Empty() bool {
	return len(p.Data) == 0 && p.Ref == ""
}

// ParsePayload normalizes a string-typed artwork value as produced by tag
// decoders: a filesystem path or file:// URI becomes a Ref, a data URI or
// raw base64 string is decoded into Data. Undecodable input yields an empty
// payload.
func ParsePayload(s string) Payload {
	if s == "" {
		return Payload{}
	}
	if strings.HasPrefix(s, "file://") || strings.HasPrefix(s, "/") {
		return Payload{Ref: s}
	}

	b64 := s
	if strings.HasPrefix(s, "data:") {
		_, after, found := strings.Cut(s, ",")
		if !found {
			return Payload{}
		}
		b64 = after
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		return Payload{}
	}
	return Payload{Data: data}
}

// Cache is a content-addressed artwork store. Entries are keyed by the
// sanitized track id, so re-scanning an unchanged track never rewrites its
// artwork.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir. An empty dir places the cache
// under the user cache directory. The directory itself is created lazily on
// the first write.
func NewCache(dir string) *Cache {
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, cacheDirName)
	}
	return &Cache{dir: dir}
}

// Persist stores the artwork for trackID and returns a reference URI.
//   - empty payload: returns "" (caller keeps any prior image)
//   - entry already cached for this id: returns its path without rewriting
//   - payload is already a file reference: passed through unchanged
//   - inline data: downscaled if oversized and written under a
//     content-addressed filename
//
// Errors mean "no artwork for this track"; they never fail the track itself.
func (c *Cache) Persist(trackID string, p Payload) (string, error) {
	if p.Empty() {
		return "", nil
	}

	path := c.entryPath(trackID)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if p.Ref != "" {
		return p.Ref, nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artwork cache dir: %w", err)
	}

	if err := os.WriteFile(path, encodeArtwork(p.Data), 0o600); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return path, nil
}

// Clear removes the whole cache directory. Best-effort; a missing directory
// is not an error.
func (c *Cache) Clear() error {
	err := os.RemoveAll(c.dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) entryPath(trackID string) string {
	return filepath.Join(c.dir, fingerprint.SafeKey(trackID)+".jpg")
}

// encodeArtwork re-encodes oversized images down to maxArtworkWidth.
// Data that cannot be decoded (e.g. an image format the stdlib does not
// know) is written through unchanged.
func encodeArtwork(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	if img.Bounds().Dx() <= maxArtworkWidth {
		return data
	}

	scaled := resize.Resize(maxArtworkWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data
	}
	return buf.Bytes()
}
