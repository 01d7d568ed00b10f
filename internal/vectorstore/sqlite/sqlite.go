// Package sqlite stores embedding vectors in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"esgalign/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	embedder  TEXT NOT NULL,
	text_key  TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	vector    BLOB NOT NULL,
	created   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (embedder, text_key)
)`

var _ vectorstore.Storage = (*Store)(nil)

// Store implements vectorstore.Storage.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases coherent and serialises
	// writers on file databases.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database, creating the schema if needed.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlite: db is nil")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, embedder, key string) ([]float64, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE embedder = ? AND text_key = ?`, embedder, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: get: %w", err)
	}
	v, err := vectorstore.DecodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put stores vec unless a vector for (embedder, key) already exists.
func (s *Store) Put(ctx context.Context, embedder, key string, vec []float64) error {
	if len(vec) == 0 {
		return errors.New("sqlite: empty vector")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO embeddings(embedder, text_key, dimension, vector) VALUES(?, ?, ?, ?)`,
		embedder, key, len(vec), vectorstore.EncodeVector(vec))
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
