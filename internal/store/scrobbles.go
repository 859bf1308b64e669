package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"needledrop/internal/scrobble"
)

// SaveScrobbles persists a batch of play events for the user and advances
// the user's last-update watermark to fetchedAt. Tracks are deduplicated on
// (title, artist, album) and plays on (user, track, listened_at), so saving
// the same batch twice is a no-op.
func (s *Store) SaveScrobbles(ctx context.Context, username string, scrobbles []scrobble.Scrobble, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var userID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, last_update)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET last_update = EXCLUDED.last_update
		RETURNING id
	`, username, fetchedAt.UTC()).Scan(&userID)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	for _, sc := range scrobbles {
		var trackID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO tracks (title, artist, album)
			VALUES ($1, $2, $3)
			ON CONFLICT (title, artist, album) DO UPDATE SET title = EXCLUDED.title
			RETURNING id
		`, sc.Track.Title, sc.Track.Artist, sc.Track.Album).Scan(&trackID)
		if err != nil {
			return fmt.Errorf("upsert track: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scrobbles (user_id, track_id, listened_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, track_id, listened_at) DO NOTHING
		`, userID, trackID, sc.Time); err != nil {
			return fmt.Errorf("insert scrobble: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return nil
}

// ScrobblesByUser returns the user's full play history ordered by time.
func (s *Store) ScrobblesByUser(ctx context.Context, username string) ([]scrobble.Scrobble, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.title, t.artist, t.album, sc.listened_at
		FROM scrobbles sc
		JOIN tracks t ON sc.track_id = t.id
		JOIN users u ON sc.user_id = u.id
		WHERE u.username = $1
		ORDER BY sc.listened_at ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("select scrobbles: %w", err)
	}
	defer rows.Close()

	return scanScrobbles(rows)
}

// ScrobblesInPeriod returns the user's plays with start <= time <= end,
// ordered by time.
func (s *Store) ScrobblesInPeriod(ctx context.Context, username string, start, end time.Time) ([]scrobble.Scrobble, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.title, t.artist, t.album, sc.listened_at
		FROM scrobbles sc
		JOIN tracks t ON sc.track_id = t.id
		JOIN users u ON sc.user_id = u.id
		WHERE u.username = $1 AND sc.listened_at >= $2 AND sc.listened_at <= $3
		ORDER BY sc.listened_at ASC
	`, username, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("select scrobbles in period: %w", err)
	}
	defer rows.Close()

	return scanScrobbles(rows)
}

// LastUpdate returns the watermark of the most recent successful fetch for
// the user.
func (s *Store) LastUpdate(ctx context.Context, username string) (time.Time, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT last_update
		FROM users
		WHERE username = $1
	`, username).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrUnknownUser
		}
		return time.Time{}, fmt.Errorf("lookup last update: %w", err)
	}
	return at.UTC(), nil
}

func scanScrobbles(rows *sql.Rows) ([]scrobble.Scrobble, error) {
	var out []scrobble.Scrobble
	for rows.Next() {
		var (
			track      scrobble.Track
			listenedAt time.Time
		)
		if err := rows.Scan(&track.Title, &track.Artist, &track.Album, &listenedAt); err != nil {
			return nil, fmt.Errorf("scan scrobble: %w", err)
		}
		out = append(out, scrobble.Scrobble{Track: track, Time: listenedAt.UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scrobbles: %w", err)
	}
	return out, nil
}
