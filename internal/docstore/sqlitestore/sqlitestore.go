// Package sqlitestore persists documents on the local disk as serialized
// JSON keyed by path. It is the single-device fallback backend: documents
// survive restarts, and in-process subscribers still get live snapshots.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gastos/internal/docstore"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	hub *docstore.Hub

	// Serializes writes so each broadcast carries consistent state.
	mu sync.Mutex
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, hub: docstore.NewHub()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := docstore.Snapshot{Path: path}
	doc, err := s.get(ctx, path)
	switch err {
	case nil:
		snap.Exists = true
		snap.Doc = doc
	case docstore.ErrNotFound:
	default:
		return nil, err
	}
	return s.hub.Subscribe(path, snap), nil
}

func (s *Store) Watch(ctx context.Context, prefix string) (*docstore.ListSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.list(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return s.hub.Watch(prefix, entries), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]docstore.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, prefix)
}

func (s *Store) Write(ctx context.Context, path string, doc docstore.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		path, string(body))
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return s.broadcast(ctx, docstore.Snapshot{Path: path, Exists: true, Doc: doc})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	return s.broadcast(ctx, docstore.Snapshot{Path: path, Exists: false})
}

func (s *Store) broadcast(ctx context.Context, snap docstore.Snapshot) error {
	listing, err := s.list(ctx, docstore.ParentPrefix(snap.Path))
	if err != nil {
		return err
	}
	s.hub.Broadcast(snap, listing)
	return nil
}

func (s *Store) get(ctx context.Context, path string) (docstore.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if err == sql.ErrNoRows {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("read document: %w", err)
	}

	var doc docstore.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return docstore.Document{}, fmt.Errorf("decode document %s: %w", path, err)
	}
	return doc, nil
}

func (s *Store) list(ctx context.Context, prefix string) ([]docstore.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, body FROM documents WHERE path LIKE ? || '/%'`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []docstore.Entry
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		// Direct children only; nested collections stay out of the listing.
		if docstore.ParentPrefix(path) != prefix {
			continue
		}
		var doc docstore.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", path, err)
		}
		out = append(out, docstore.Entry{ID: docstore.DocumentID(path), Path: path, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
