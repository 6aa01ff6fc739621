package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dome/internal/dbx"
)

const (
	lookupQuery  = `SELECT value, updated_at FROM metadata WHERE key = ?`
	entriesQuery = `SELECT key, value, updated_at FROM metadata ORDER BY key`
	putQuery     = `INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// Store keeps entries in the metadata table of the local SQLite database.
// It runs on a *sql.DB or inside a transaction.
type Store struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	var updated int64
	err := s.db.QueryRowContext(ctx, lookupQuery, key).Scan(&e.Value, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, false, nil
	case err != nil:
		return Entry{}, false, fmt.Errorf("lookup metadata key %q: %w", key, err)
	}
	e.UpdatedAt = time.Unix(updated, 0).UTC()
	return e, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, putQuery, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("put metadata key %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `DELETE FROM metadata WHERE key IN (?` + strings.Repeat(", ?", len(keys)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("remove metadata keys %v: %w", keys, err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, entriesQuery)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Key, &e.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan metadata entry: %w", err)
		}
		e.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata entries: %w", err)
	}
	return out, nil
}

var _ Repository = (*Store)(nil)
