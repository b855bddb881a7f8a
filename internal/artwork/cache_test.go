package artwork

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestPersistEmptyPayload(t *testing.T) {
	c := NewCache(t.TempDir())

	uri, err := c.Persist("track-1", Payload{})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if uri != "" {
		t.Errorf("expected empty uri for empty payload, got %q", uri)
	}
}

func TestPersistWritesAndIsIdempotent(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "art"))
	data := testJPEG(t, 32, 32)

	uri, err := c.Persist("track:1", Payload{Data: data})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if uri == "" {
		t.Fatal("expected a cache path")
	}

	info, err := os.Stat(uri)
	if err != nil {
		t.Fatalf("cached file missing: %v", err)
	}
	firstMod := info.ModTime()

	// Second persist with different bytes must return the existing entry
	// without rewriting it.
	uri2, err := c.Persist("track:1", Payload{Data: testJPEG(t, 16, 16)})
	if err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}
	if uri2 != uri {
		t.Errorf("expected same uri, got %q vs %q", uri2, uri)
	}
	info2, err := os.Stat(uri)
	if err != nil {
		t.Fatalf("cached file missing after second persist: %v", err)
	}
	if !info2.ModTime().Equal(firstMod) {
		t.Error("cache entry was rewritten on unchanged track id")
	}
}

func TestPersistPassesThroughFileRefs(t *testing.T) {
	c := NewCache(t.TempDir())

	uri, err := c.Persist("track-2", Payload{Ref: "/covers/existing.jpg"})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if uri != "/covers/existing.jpg" {
		t.Errorf("expected pass-through ref, got %q", uri)
	}
}

func TestPersistDistinctIDsGetDistinctEntries(t *testing.T) {
	// Two ids whose sanitized forms collide must not share a cache file.
	c := NewCache(t.TempDir())
	data := testJPEG(t, 8, 8)

	a, err := c.Persist("track/1", Payload{Data: data})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	b, err := c.Persist("track_1", Payload{Data: data})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if a == b {
		t.Errorf("colliding sanitized ids mapped to the same entry: %q", a)
	}
}

func TestPersistDownscalesOversizedImages(t *testing.T) {
	c := NewCache(t.TempDir())

	uri, err := c.Persist("big", Payload{Data: testJPEG(t, 1600, 1600)})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	f, err := os.Open(uri)
	if err != nil {
		t.Fatalf("failed to open cached artwork: %v", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode cached artwork: %v", err)
	}
	if cfg.Width > 1024 {
		t.Errorf("cached artwork width %d, expected <= 1024", cfg.Width)
	}
}

func TestParsePayload(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff}
	b64 := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name     string
		input    string
		wantRef  string
		wantData []byte
	}{
		{"empty", "", "", nil},
		{"absolute path", "/covers/a.jpg", "/covers/a.jpg", nil},
		{"file uri", "file:///covers/a.jpg", "file:///covers/a.jpg", nil},
		{"raw base64", b64, "", raw},
		{"data uri", "data:image/jpeg;base64," + b64, "", raw},
		{"invalid base64", "!!!not-base64!!!", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePayload(tt.input)
			if p.Ref != tt.wantRef {
				t.Errorf("ref = %q, expected %q", p.Ref, tt.wantRef)
			}
			if !bytes.Equal(p.Data, tt.wantData) {
				t.Errorf("data = %v, expected %v", p.Data, tt.wantData)
			}
		})
	}
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "art")
	c := NewCache(dir)
	if _, err := c.Persist("t", Payload{Data: testJPEG(t, 8, 8)}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected cache dir removed, stat err = %v", err)
	}

	// Clearing twice is fine.
	if err := c.Clear(); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}
