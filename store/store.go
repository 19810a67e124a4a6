// Package store persists the service's state in SQLite: users, notes, and
// the per-note link-preview preferences (the user's "hide" flag).
package store

import (
	"database/sql"
	"errors"

	"github.com/patattzel/memos/dbopen"
	"github.com/patattzel/memos/idgen"
)

// ErrNotFound is returned when a row does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("store: not found")

// Schema is the full database schema, applied idempotently at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS link_prefs (
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	hidden     INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, note_id)
);
`

// Store wraps the database handle and the ID strategy.
type Store struct {
	db     *sql.DB
	noteID idgen.Generator
	userID idgen.Generator
}

// Option configures a Store.
type Option func(*Store)

// WithNoteIDGenerator overrides the note ID strategy.
func WithNoteIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.noteID = gen }
}

// New builds a Store on an already-opened database and applies the schema.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		noteID: idgen.Prefixed("note_", idgen.Default),
		userID: idgen.Prefixed("usr_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the database at path (creating parent directories) and builds
// a Store on it.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	return New(db, opts...)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
