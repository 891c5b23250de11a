package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists documents in a single SQLite table keyed by
// collection. Filters are evaluated with json_extract.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("docstore: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("docstore: open database: %w", err)
	}
	// A single connection serializes writers; WAL keeps readers cheap.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("docstore: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT    NOT NULL,
			doc        TEXT    NOT NULL,
			updated_at TEXT    NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
		CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(collection, json_extract(doc, '$.user_id'));
	`
	_, err := s.db.Exec(schema)
	return err
}

// where builds the WHERE clause for a collection and filter. Field names are
// validated before they reach the query text.
func where(collection string, filter Filter) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{collection}

	fields := make([]string, 0, len(filter))
	for f := range filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		clauses = append(clauses, fmt.Sprintf("CAST(json_extract(doc, '$.%s') AS TEXT) = ?", f))
		args = append(args, filter[f])
	}
	return strings.Join(clauses, " AND "), args
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type row struct {
	seq int64
	doc []byte
}

func selectRows(ctx context.Context, q querier, collection string, filter Filter, limit int) ([]row, error) {
	clause, args := where(collection, filter)
	query := "SELECT seq, doc FROM documents WHERE " + clause + " ORDER BY seq"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var doc string
		if err := rows.Scan(&r.seq, &doc); err != nil {
			return nil, fmt.Errorf("docstore: scan: %w", err)
		}
		r.doc = []byte(doc)
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindOne returns the first matching document.
func (s *SQLiteStore) FindOne(ctx context.Context, collection string, filter Filter) ([]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}
	rows, err := selectRows(ctx, s.db, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].doc, nil
}

// Find returns every matching document.
func (s *SQLiteStore) Find(ctx context.Context, collection string, filter Filter) ([][]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}
	rows, err := selectRows(ctx, s.db, collection, filter, 0)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.doc)
	}
	return out, nil
}

// FindOneAndUpdate replaces the first matching document inside a transaction.
func (s *SQLiteStore) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update UpdateFunc, opts ...UpdateOption) ([]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	var out []byte
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := selectRows(ctx, tx, collection, filter, 1)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			if !o.Upsert {
				return ErrNotFound
			}
			next, err := update(nil)
			if err != nil {
				return err
			}
			if err := validDocument(next); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO documents (collection, doc) VALUES (?, ?)", collection, string(next)); err != nil {
				return fmt.Errorf("docstore: insert: %w", err)
			}
			out = next
			return nil
		}

		next, err := update(rows[0].doc)
		if err != nil {
			return err
		}
		if err := validDocument(next); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE documents SET doc = ?, updated_at = datetime('now') WHERE seq = ?", string(next), rows[0].seq); err != nil {
			return fmt.Errorf("docstore: update: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Insert adds a document.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, doc []byte) error {
	if err := validate(collection, nil); err != nil {
		return err
	}
	if err := validDocument(doc); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO documents (collection, doc) VALUES (?, ?)", collection, string(doc)); err != nil {
		return fmt.Errorf("docstore: insert: %w", err)
	}
	return nil
}

// UpdateMany rewrites every matching document inside one transaction.
func (s *SQLiteStore) UpdateMany(ctx context.Context, collection string, filter Filter, update UpdateFunc) (int, error) {
	if err := validate(collection, filter); err != nil {
		return 0, err
	}

	changed := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := selectRows(ctx, tx, collection, filter, 0)
		if err != nil {
			return err
		}
		for _, r := range rows {
			next, err := update(r.doc)
			if err != nil {
				return err
			}
			if bytes.Equal(next, r.doc) {
				continue
			}
			if err := validDocument(next); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "UPDATE documents SET doc = ?, updated_at = datetime('now') WHERE seq = ?", string(next), r.seq); err != nil {
				return fmt.Errorf("docstore: update: %w", err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
