package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agroscan/agroscan/internal/utils"
	_ "modernc.org/sqlite"
)

// ErrStorageUnavailable is returned whenever the underlying database cannot be read or written.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Store is a flat key-value blob store. Every key holds one whole value; collections are
// JSON arrays that are always rewritten in full.
type Store struct {
	sql  *sql.DB
	mu   sync.Mutex
	lock *utils.StoreLock
}

func Open(path string) (*Store, error) {
	lock, err := utils.NewStoreLock(path)
	if err != nil {
		return nil, unavailable(err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable(err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `); err != nil {
		db.Close()
		return nil, unavailable(err)
	}
	s := newStore(db)
	s.lock = lock
	return s, nil
}

func newStore(db *sql.DB) *Store {
	return &Store{sql: db}
}

func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Get returns the raw value stored under key. ok is false when the key was never written.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if s == nil || s.sql == nil {
		return "", false, unavailable(errors.New("store is not open"))
	}
	return getValue(ctx, s.sql, key)
}

// Put overwrites the raw value stored under key.
func (s *Store) Put(ctx context.Context, key, value string) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		return putValue(ctx, tx, key, value)
	})
}

// Load returns the collection stored under key. A key that was never written yields an
// empty collection.
func (s *Store) Load(ctx context.Context, key string) ([]ScanRecord, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeRecords(key, raw, ok)
}

// ReplaceAll atomically overwrites the whole collection.
func (s *Store) ReplaceAll(ctx context.Context, key string, records []ScanRecord) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		return putRecords(ctx, tx, key, Dedupe(records))
	})
}

// Append stores record at the head of the collection, replacing any record with the same ID.
// A missing ID or timestamp is filled in. It returns the record as stored.
func (s *Store) Append(ctx context.Context, key string, record ScanRecord) (ScanRecord, error) {
	record = stamp(record)
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		existing, err := loadTx(ctx, tx, key)
		if err != nil {
			return err
		}
		out := make([]ScanRecord, 0, len(existing)+1)
		out = append(out, record)
		for _, r := range existing {
			if r.ID != record.ID {
				out = append(out, r)
			}
		}
		return putRecords(ctx, tx, key, out)
	})
	return record, err
}

// Remove deletes the record with the given ID. Removing an unknown ID is a no-op and
// reports false.
func (s *Store) Remove(ctx context.Context, key, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		existing, err := loadTx(ctx, tx, key)
		if err != nil {
			return err
		}
		out := make([]ScanRecord, 0, len(existing))
		for _, r := range existing {
			if r.ID == id {
				removed = true
				continue
			}
			out = append(out, r)
		}
		if !removed {
			return nil
		}
		return putRecords(ctx, tx, key, out)
	})
	return removed, err
}

// Clear drops the key entirely.
func (s *Store) Clear(ctx context.Context, key string) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
			return unavailable(err)
		}
		return nil
	})
}

// Size returns the number of bytes stored under key.
func (s *Store) Size(ctx context.Context, key string) (int, error) {
	if s == nil || s.sql == nil {
		return 0, unavailable(errors.New("store is not open"))
	}
	var n int
	err := s.sql.QueryRowContext(ctx, "SELECT length(CAST(value AS BLOB)) FROM kv WHERE key = ?", key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// mutate runs fn in a transaction while holding both the in-process mutex and the
// cross-process file lock.
func (s *Store) mutate(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	if s == nil || s.sql == nil {
		return unavailable(errors.New("store is not open"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		if err := s.lock.Lock(ctx); err != nil {
			return unavailable(err)
		}
		defer func() {
			if uerr := s.lock.Unlock(); uerr != nil {
				utils.Log.Warnf("Could not release store lock: %v", uerr)
			}
		}()
	}

	tx, err := s.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return unavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getValue(ctx context.Context, q queryer, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func putValue(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO kv(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func loadTx(ctx context.Context, tx *sql.Tx, key string) ([]ScanRecord, error) {
	raw, ok, err := getValue(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	return decodeRecords(key, raw, ok)
}

func putRecords(ctx context.Context, tx *sql.Tx, key string, records []ScanRecord) error {
	if records == nil {
		records = []ScanRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return putValue(ctx, tx, key, string(data))
}

func decodeRecords(key, raw string, ok bool) ([]ScanRecord, error) {
	if !ok || strings.TrimSpace(raw) == "" {
		return []ScanRecord{}, nil
	}
	var out []ScanRecord
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: collection %q is corrupt: %v", ErrStorageUnavailable, key, err)
	}
	if out == nil {
		out = []ScanRecord{}
	}
	return out, nil
}
