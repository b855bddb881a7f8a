package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingScanner struct {
	mu    sync.Mutex
	calls int
}

func (s *recordingScanner) StartIndexing(context.Context, bool, bool) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return nil
}

func (s *recordingScanner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type gate bool

func (g gate) AutoScanEnabled() bool { return bool(g) }

func waitForCalls(t *testing.T, s *recordingScanner, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.count() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d scans, got %d", want, s.count())
}

func TestAudioFileChangeTriggersScan(t *testing.T) {
	root := t.TempDir()
	scanner := &recordingScanner{}

	w, err := New([]string{root}, scanner, gate(true), zap.NewNop(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(root, "new.mp3"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitForCalls(t, scanner, 1)
}

func TestBurstIsDebouncedIntoOneScan(t *testing.T) {
	root := t.TempDir()
	scanner := &recordingScanner{}

	w, err := New([]string{root}, scanner, gate(true), zap.NewNop(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, string(rune('a'+i))+".mp3")
		if err := os.WriteFile(name, []byte("x"), 0o600); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitForCalls(t, scanner, 1)
	time.Sleep(300 * time.Millisecond)
	if scanner.count() != 1 {
		t.Errorf("expected one debounced scan, got %d", scanner.count())
	}
}

func TestNonAudioChangesAreIgnored(t *testing.T) {
	root := t.TempDir()
	scanner := &recordingScanner{}

	w, err := New([]string{root}, scanner, gate(true), zap.NewNop(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if scanner.count() != 0 {
		t.Errorf("expected no scan for a text file, got %d", scanner.count())
	}
}

func TestAutoScanGateBlocksScan(t *testing.T) {
	root := t.TempDir()
	scanner := &recordingScanner{}

	w, err := New([]string{root}, scanner, gate(false), zap.NewNop(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(root, "new.mp3"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if scanner.count() != 0 {
		t.Errorf("expected no scan with auto-scan disabled, got %d", scanner.count())
	}
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	scanner := &recordingScanner{}

	w, err := New([]string{root}, scanner, gate(true), zap.NewNop(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	sub := filepath.Join(root, "albums")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	// Give the watcher a moment to pick up the new directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "track.flac"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitForCalls(t, scanner, 1)
}
