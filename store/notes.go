package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patattzel/memos/dbopen"
)

// Note is one user note. Content is plain text; the link-preview pipeline
// scans it for the first URL at display time.
type Note struct {
	ID        string `json:"id"`
	UserID    string `json:"-"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// CreateNote inserts a note for userID and returns it.
func (s *Store) CreateNote(ctx context.Context, userID, content string) (*Note, error) {
	n := &Note{
		ID:        s.noteID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}
	n.UpdatedAt = n.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, content, created_at, updated_at)
		VALUES (?,?,?,?,?)`,
		n.ID, n.UserID, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetNote returns one note, scoped to its owner.
func (s *Store) GetNote(ctx context.Context, userID, noteID string) (*Note, error) {
	var n Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, created_at, updated_at
		FROM notes WHERE id = ? AND user_id = ?`,
		noteID, userID).Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns the user's notes, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, created_at, updated_at
		FROM notes WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// UpdateNote replaces a note's content, scoped to its owner.
func (s *Store) UpdateNote(ctx context.Context, userID, noteID, content string) (*Note, error) {
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE notes SET content = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			content, time.Now().Unix(), noteID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetNote(ctx, userID, noteID)
}

// DeleteNote removes a note, scoped to its owner.
func (s *Store) DeleteNote(ctx context.Context, userID, noteID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
