// Package store is the durable library of track records. It is the single
// source of truth the reactive projection mirrors; rows are soft-deleted
// (tombstoned) during reconciliation and physically purged afterwards.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lvasseur/trackdex/internal/db"
)

const (
	appName    = "trackdex"
	dbFileName = "trackdex.db"
)

// Track is the durable unit of library state, keyed by the stable asset id.
// Usage fields (PlayCount, Favorite, LastPlayedAt) are owned by playback
// collaborators; the indexer carries them through upserts untouched.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Genre    string
	URI      string
	Duration float64 // seconds
	Image    string  // artwork cache reference, "" if none

	FileHash string
	ScanTime int64 // epoch millis of last successful processing

	IsDeleted bool

	PlayCount    int
	Favorite     bool
	LastPlayedAt int64
}

// Store wraps the sqlite database holding the track table and play history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the library database at path. An empty
// path places the database under the user data directory.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = xdg.DataFile(filepath.Join(appName, dbFileName))
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	return OpenDB(sqlDB)
}

// OpenDB initializes the schema on an already-opened database. Used by Open
// and by tests running against :memory:.
func OpenDB(sqlDB *sql.DB) (*Store, error) {
	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: sqlDB}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for collaborators (favorites, playlists)
// that share the same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

const trackColumns = `id, title, artist, album, genre, uri, duration, image,
	file_hash, scan_time, is_deleted, play_count, favorite, last_played_at`

func scanTrack(row interface{ Scan(...any) error }) (Track, error) {
	var t Track
	var artist, album, genre, image sql.NullString
	var lastPlayed sql.NullInt64

	err := row.Scan(&t.ID, &t.Title, &artist, &album, &genre, &t.URI, &t.Duration,
		&image, &t.FileHash, &t.ScanTime, &t.IsDeleted, &t.PlayCount, &t.Favorite, &lastPlayed)
	if err != nil {
		return Track{}, err
	}
	t.Artist = db.NullStringValue(artist)
	t.Album = db.NullStringValue(album)
	t.Genre = db.NullStringValue(genre)
	t.Image = db.NullStringValue(image)
	t.LastPlayedAt = db.NullInt64Value(lastPlayed)
	return t, nil
}

// GetAll returns all live (non-tombstoned) tracks.
func (s *Store) GetAll() ([]Track, error) {
	return s.getAll(false)
}

// GetAllIncludingDeleted returns every row, tombstones included. Used by the
// cleanup phase and by diffing.
func (s *Store) GetAllIncludingDeleted() ([]Track, error) {
	return s.getAll(true)
}

func (s *Store) getAll(includeDeleted bool) ([]Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks`
	if !includeDeleted {
		query += ` WHERE is_deleted = 0`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetByID returns a track by id, tombstoned or not. Returns nil when the id
// is unknown.
func (s *Store) GetByID(id string) (*Track, error) {
	row := s.db.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAllIDs returns every track id, tombstones included; tombstoned ids
// disappear from this listing only after PurgeDeleted.
func (s *Store) GetAllIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert inserts or replaces a track by id. Full-row replace semantics:
// callers pass a complete record, fingerprint and scan time included.
func (s *Store) Upsert(t Track) error {
	return upsertTrack(s.db, t)
}

// UpsertMany writes a batch of tracks in a single transaction, so a crash
// mid-batch never leaves a partially-applied batch visible.
func (s *Store) UpsertMany(tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}
	return db.WithTx(s.db, func(tx *sql.Tx) error {
		for _, t := range tracks {
			if err := upsertTrack(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

type executor interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertTrack(ex executor, t Track) error {
	_, err := ex.Exec(`
		INSERT INTO tracks (id, title, artist, album, genre, uri, duration, image,
			file_hash, scan_time, is_deleted, play_count, favorite, last_played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			genre = excluded.genre,
			uri = excluded.uri,
			duration = excluded.duration,
			image = excluded.image,
			file_hash = excluded.file_hash,
			scan_time = excluded.scan_time,
			is_deleted = excluded.is_deleted,
			play_count = excluded.play_count,
			favorite = excluded.favorite,
			last_played_at = excluded.last_played_at
	`, t.ID, t.Title, t.Artist, t.Album, t.Genre, t.URI, t.Duration, nullIfEmpty(t.Image),
		t.FileHash, t.ScanTime, t.IsDeleted, t.PlayCount, t.Favorite, nullIfZero(t.LastPlayedAt))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

// MarkDeleted tombstones a track without removing the row.
func (s *Store) MarkDeleted(id string) error {
	_, err := s.db.Exec(`UPDATE tracks SET is_deleted = 1 WHERE id = ?`, id)
	return err
}

// PurgeDeleted physically removes all tombstoned rows and their history.
func (s *Store) PurgeDeleted() error {
	return db.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM history WHERE track_id IN (SELECT id FROM tracks WHERE is_deleted = 1)
		`); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM tracks WHERE is_deleted = 1`)
		return err
	})
}
