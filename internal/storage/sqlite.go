// Package storage provides the SQLite ingestion cache and disk usage helpers.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache records processed documents in a SQLite table. Every Record is committed
// immediately, so Persist has nothing left to do.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_documents (
		doc_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Contains reports whether docID has been recorded.
func (s *SQLiteCache) Contains(docID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM processed_documents WHERE doc_id = ?`, docID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Record stores docID -> path, replacing any previous row.
func (s *SQLiteCache) Record(docID, path string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO processed_documents (doc_id, path, processed_at) VALUES (?, ?, ?)`,
		docID, path, time.Now(),
	)
	return err
}

// Path returns the path recorded for docID.
func (s *SQLiteCache) Path(docID string) (string, bool, error) {
	var path string
	err := s.db.QueryRow(`SELECT path FROM processed_documents WHERE doc_id = ?`, docID).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Persist is a no-op; records are committed on Record.
func (s *SQLiteCache) Persist() error {
	return nil
}

// Len returns the number of recorded documents.
func (s *SQLiteCache) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM processed_documents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
