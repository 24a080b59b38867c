// Package store provides the local key-sorted table store backing the
// pipeline: a set of named tables of (key, value) rows kept in key order,
// persisted in a single SQLite database file. It satisfies core.Store.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed key-sorted table store. Each logical table is one
// relation of (k TEXT PRIMARY KEY, v TEXT); primary-key order gives the
// ascending-key scan.
type Store struct {
	db     *sql.DB
	tables map[string]bool
}

// Open opens (creating if needed) the database at path and ensures each of
// the given tables exists. Use ":memory:" for a throwaway store.
func Open(path string, tables ...string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Pragmas for local single-writer use.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, tables: make(map[string]bool, len(tables))}
	for _, table := range tables {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (k TEXT PRIMARY KEY, v TEXT NOT NULL)`, table)
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table %s: %w", table, err)
		}
		s.tables[table] = true
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// relation resolves a logical table name, rejecting names the store was not
// opened with. Table names are interpolated into SQL, so this is the guard.
func (s *Store) relation(table string) (string, error) {
	if !s.tables[table] {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return fmt.Sprintf("%q", table), nil
}

// Get returns the value stored under key, or ok=false if absent.
func (s *Store) Get(ctx context.Context, table, key string) ([]byte, bool, error) {
	rel, err := s.relation(table)
	if err != nil {
		return nil, false, err
	}

	var value []byte
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, rel), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting %s/%s: %w", table, key, err)
	}
	return value, true, nil
}

// Put inserts or replaces the value stored under key.
func (s *Store) Put(ctx context.Context, table, key string, value []byte) error {
	rel, err := s.relation(table)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (k, v) VALUES (?, ?)
		             ON CONFLICT(k) DO UPDATE SET v = excluded.v`, rel),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", table, key, err)
	}
	return nil
}

// Scan visits every row of table in ascending key order.
func (s *Store) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	rel, err := s.relation(table)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT k, v FROM %s ORDER BY k`, rel),
	)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning %s row: %w", table, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}
