package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the SQLite connection backing one results database.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to (creating if necessary) the SQLite database at path
// and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts the single write transaction a run uses for every
// put_context/put_test_program/put_test_case/put_result/put_artifact call,
// committed once at the end of the scheduler loop.
func (s *Store) Begin() (*WriteTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin transaction: %w", err)
	}
	return &WriteTransaction{tx: tx}, nil
}
