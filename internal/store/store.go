package store

import (
	"database/sql"
	"errors"
)

var (
	// ErrUnknownUser indicates no scrobbles have ever been stored for the
	// username.
	ErrUnknownUser = errors.New("unknown user")
)

// Store provides scrobble persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
