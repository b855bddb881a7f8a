package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	s, err := OpenDB(sqlDB)
	if err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTrack(id string) Track {
	return Track{
		ID:       id,
		Title:    "Title " + id,
		Artist:   "Artist",
		Album:    "Album",
		URI:      "file:///music/" + id + ".mp3",
		Duration: 180,
		FileHash: "hash-" + id,
		ScanTime: 1000,
	}
}

func TestUpsertAndGetByID(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Upsert(testTrack("a")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := s.GetByID("a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected track, got nil")
	}
	if got.Title != "Title a" || got.FileHash != "hash-a" || got.Duration != 180 {
		t.Errorf("unexpected track: %+v", got)
	}

	missing, err := s.GetByID("nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown id, got %+v", missing)
	}
}

func TestUpsertIsFullRowReplace(t *testing.T) {
	s := setupTestStore(t)

	tr := testTrack("a")
	tr.PlayCount = 4
	tr.Favorite = true
	tr.LastPlayedAt = 5000
	if err := s.Upsert(tr); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Re-upsert with updated metadata, carrying usage fields through.
	tr.Title = "Renamed"
	tr.FileHash = "hash-a2"
	tr.ScanTime = 2000
	if err := s.Upsert(tr); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := s.GetByID("a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Renamed" || got.FileHash != "hash-a2" || got.ScanTime != 2000 {
		t.Errorf("metadata not replaced: %+v", got)
	}
	if got.PlayCount != 4 || !got.Favorite || got.LastPlayedAt != 5000 {
		t.Errorf("usage fields lost: %+v", got)
	}
}

func TestUpsertMany(t *testing.T) {
	s := setupTestStore(t)

	tracks := []Track{testTrack("a"), testTrack("b"), testTrack("c")}
	if err := s.UpsertMany(tracks); err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}

	all, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 tracks, got %d", len(all))
	}

	if err := s.UpsertMany(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestTombstoneLifecycle(t *testing.T) {
	s := setupTestStore(t)

	if err := s.UpsertMany([]Track{testTrack("a"), testTrack("b")}); err != nil {
		t.Fatalf("UpsertMany failed: %v", err)
	}

	if err := s.MarkDeleted("a"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}

	// Default reads exclude tombstones.
	live, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(live) != 1 || live[0].ID != "b" {
		t.Errorf("expected only b live, got %+v", live)
	}

	// Tombstone remains queryable until purged.
	all, err := s.GetAllIncludingDeleted()
	if err != nil {
		t.Fatalf("GetAllIncludingDeleted failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 rows including tombstone, got %d", len(all))
	}

	ids, err := s.GetAllIDs()
	if err != nil {
		t.Fatalf("GetAllIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected tombstoned id still listed, got %v", ids)
	}

	if err := s.PurgeDeleted(); err != nil {
		t.Fatalf("PurgeDeleted failed: %v", err)
	}
	ids, err = s.GetAllIDs()
	if err != nil {
		t.Fatalf("GetAllIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("expected only b after purge, got %v", ids)
	}
}

func TestHistoryCapAndJoin(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Upsert(testTrack("a")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	for i := 0; i < 60; i++ {
		if err := s.AddHistory("a"); err != nil {
			t.Fatalf("AddHistory failed: %v", err)
		}
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM history`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count > 50 {
		t.Errorf("history grew past cap: %d", count)
	}

	entries, err := s.RecentlyPlayed(10)
	if err != nil {
		t.Fatalf("RecentlyPlayed failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected history entries")
	}
	if entries[0].Track.ID != "a" {
		t.Errorf("unexpected track in history: %+v", entries[0].Track)
	}

	// Tombstoned tracks disappear from history reads.
	if err := s.MarkDeleted("a"); err != nil {
		t.Fatalf("MarkDeleted failed: %v", err)
	}
	entries, err = s.RecentlyPlayed(10)
	if err != nil {
		t.Fatalf("RecentlyPlayed failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries for tombstoned track, got %d", len(entries))
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	s := setupTestStore(t)

	// Re-running the schema against an existing database must not error.
	if err := initSchema(s.DB()); err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
}
