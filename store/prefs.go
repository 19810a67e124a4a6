package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SetLinkHidden records the user's hide preference for one note's link
// preview. The flag is a user choice, independent of fetch outcome, and
// outlives any single display of the note.
func (s *Store) SetLinkHidden(ctx context.Context, userID, noteID string, hidden bool) error {
	h := 0
	if hidden {
		h = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO link_prefs (user_id, note_id, hidden, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(user_id, note_id) DO UPDATE SET hidden = excluded.hidden, updated_at = excluded.updated_at`,
		userID, noteID, h, time.Now().Unix())
	return err
}

// GetLinkHidden reports the hide preference for one note. Absent rows mean
// not hidden.
func (s *Store) GetLinkHidden(ctx context.Context, userID, noteID string) (bool, error) {
	var h int
	err := s.db.QueryRowContext(ctx, `
		SELECT hidden FROM link_prefs WHERE user_id = ? AND note_id = ?`,
		userID, noteID).Scan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return h == 1, nil
}
