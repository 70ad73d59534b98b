// Package store implements the document store the cleanser persists to: JSON
// documents grouped into named collections, backed by a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"hn_cleanser/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Doc is one stored document along with its id within the collection.
type Doc struct {
	ID   string
	Body json.RawMessage
}

// Query narrows and orders a Find. Zero fields are ignored. Field names refer
// to top-level keys of the stored JSON body.
type Query struct {
	GTEField  string
	GTE       int64
	SortField string
	SortDesc  bool
}

// Store is a SQLite-backed document store keyed by (collection, id).
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn and runs pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writes serialized and makes an in-memory dsn
	// behave as a single database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindAll returns every document in the collection in insertion order.
// An empty or missing collection yields an empty result, not an error.
func (s *Store) FindAll(ctx context.Context, collection string) ([]Doc, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanDocs(rows)
}

// jsonField vets JSON field names before they are spliced into a query.
var jsonField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Find returns the documents matching q.
func (s *Store) Find(ctx context.Context, collection string, q Query) ([]Doc, error) {
	query := `SELECT id, body FROM documents WHERE collection = ?`
	args := []any{collection}

	if q.GTEField != "" {
		if !jsonField.MatchString(q.GTEField) {
			return nil, fmt.Errorf("invalid filter field %q", q.GTEField)
		}
		query += fmt.Sprintf(` AND json_extract(body, '$.%s') >= ?`, q.GTEField)
		args = append(args, q.GTE)
	}
	if q.SortField != "" {
		if !jsonField.MatchString(q.SortField) {
			return nil, fmt.Errorf("invalid sort field %q", q.SortField)
		}
		query += fmt.Sprintf(` ORDER BY json_extract(body, '$.%s')`, q.SortField)
		if q.SortDesc {
			query += ` DESC`
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanDocs(rows)
}

// Upsert inserts the document under the given id, replacing any existing
// document with the same (collection, id). Idempotent by construction.
func (s *Store) Upsert(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`,
		collection, id, string(body), now,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Insert stores a document without a natural key under a generated id,
// which is returned.
func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Upsert(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteByID removes a single document. Deleting a missing document is not
// an error.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Drop removes every document in the collection. Dropping a collection that
// does not exist is a success.
func (s *Store) Drop(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ?`, collection,
	)
	if err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func scanDocs(rows *sql.Rows) ([]Doc, error) {
	var docs []Doc
	for rows.Next() {
		var d Doc
		var body string
		if err := rows.Scan(&d.ID, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Body = json.RawMessage(body)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
