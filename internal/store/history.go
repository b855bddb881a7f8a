package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lvasseur/trackdex/internal/db"
)

// historyLimit bounds the play log to the most recent entries.
const historyLimit = 50

// HistoryEntry is one play event joined with its track.
type HistoryEntry struct {
	Track     Track
	Timestamp int64
}

// AddHistory records a play event for a track and trims the log to the
// most recent historyLimit entries.
func (s *Store) AddHistory(trackID string) error {
	ts := time.Now().UnixMilli()
	return db.WithTx(s.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO history (id, track_id, timestamp) VALUES (?, ?, ?)
		`, fmt.Sprintf("%s-%d", trackID, ts), trackID, ts)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			DELETE FROM history
			WHERE id NOT IN (
				SELECT id FROM history ORDER BY timestamp DESC LIMIT ?
			)
		`, historyLimit)
		return err
	})
}

// RecentlyPlayed returns the most recent play events, newest first, skipping
// tombstoned tracks.
func (s *Store) RecentlyPlayed(limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}

	rows, err := s.db.Query(`
		SELECT t.id, t.title, t.artist, t.album, t.genre, t.uri, t.duration, t.image,
			t.file_hash, t.scan_time, t.is_deleted, t.play_count, t.favorite, t.last_played_at,
			h.timestamp
		FROM history h
		JOIN tracks t ON h.track_id = t.id
		WHERE t.is_deleted = 0
		ORDER BY h.timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var artist, album, genre, image sql.NullString
		var lastPlayed sql.NullInt64
		t := &e.Track
		err := rows.Scan(&t.ID, &t.Title, &artist, &album, &genre, &t.URI, &t.Duration,
			&image, &t.FileHash, &t.ScanTime, &t.IsDeleted, &t.PlayCount, &t.Favorite,
			&lastPlayed, &e.Timestamp)
		if err != nil {
			return nil, err
		}
		t.Artist = db.NullStringValue(artist)
		t.Album = db.NullStringValue(album)
		t.Genre = db.NullStringValue(genre)
		t.Image = db.NullStringValue(image)
		t.LastPlayedAt = db.NullInt64Value(lastPlayed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
