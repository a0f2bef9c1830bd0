package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteKV stores records in a single SQLite table.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens (or creates) the database file and the kv_records table.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS kv_records (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_records table: %w", err)
	}

	log.Printf("INFO: SQLite store initialized: %s", path)
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
