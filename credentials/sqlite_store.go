package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the credential as one row of a key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, credentialsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate credentials: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, cred StoredCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		StorageKey, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*StoredCredential, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, StorageKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: select credential: %w", ErrStorageCorrupt, err)
	}

	var cred StoredCredential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	return &cred, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, StorageKey); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
