package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified by another session")
)

const pragmasSQL = `
PRAGMA journal_mode=WAL
PRAGMA busy_timeout=5000
PRAGMA synchronous=NORMAL
`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	digest     TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Record is one stored value with its content digest and write version.
type Record struct {
	Key       string
	Value     []byte
	Digest    string
	Version   int64
	UpdatedAt time.Time
}

// RecordStore is a small key/value store on SQLite holding the autosaved
// document and the import backup.
type RecordStore struct {
	conn *sql.DB
	path string
}

func OpenRecordStore(dbPath string) (*RecordStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &RecordStore{conn: conn, path: dbPath}, nil
}

func (s *RecordStore) Close() error {
	return s.conn.Close()
}

func (s *RecordStore) Path() string {
	return s.path
}

func digest(value []byte) string {
	sum := blake3.Sum256(value)
	return hex.EncodeToString(sum[:])
}

func (s *RecordStore) Get(ctx context.Context, key string) (Record, error) {
	return getRecord(ctx, s.conn, key)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, key string) (Record, error) {
	rec := Record{Key: key}
	var updated int64
	err := q.QueryRowContext(ctx,
		`SELECT value, digest, version, updated_at FROM records WHERE key = ?`, key,
	).Scan(&rec.Value, &rec.Digest, &rec.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying record %s: %w", key, err)
	}
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}

// Put writes value under key if the stored version still equals expected
// (zero for a key that does not exist yet). Writing the same bytes again is a
// no-op that returns the current record.
func (s *RecordStore) Put(ctx context.Context, key string, value []byte, expected int64) (Record, error) {
	return s.put(ctx, key, value, &expected)
}

// ForcePut writes value regardless of the stored version.
func (s *RecordStore) ForcePut(ctx context.Context, key string, value []byte) (Record, error) {
	return s.put(ctx, key, value, nil)
}

func (s *RecordStore) put(ctx context.Context, key string, value []byte, expected *int64) (Record, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getRecord(ctx, tx, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	if expected != nil && current.Version != *expected {
		return current, ErrVersionConflict
	}

	sum := digest(value)
	if exists && current.Digest == sum {
		return current, nil
	}

	next := Record{
		Key:       key,
		Value:     value,
		Digest:    sum,
		Version:   current.Version + 1,
		UpdatedAt: time.Now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (key, value, digest, version, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, digest = excluded.digest,
		 version = excluded.version, updated_at = excluded.updated_at`,
		next.Key, next.Value, next.Digest, next.Version, next.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("writing record %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("committing record %s: %w", key, err)
	}
	return next, nil
}

func (s *RecordStore) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}
