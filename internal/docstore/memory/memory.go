// Package memory is the in-memory document store: the default backend and
// the test double for everything that talks to the store boundary.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gastos/internal/docstore"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]docstore.Document
	hub  *docstore.Hub
}

func New() *Store {
	return &Store{
		docs: make(map[string]docstore.Document),
		hub:  docstore.NewHub(),
	}
}

func (s *Store) Subscribe(_ context.Context, path string) (*docstore.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.Subscribe(path, s.snapshotLocked(path)), nil
}

func (s *Store) Watch(_ context.Context, prefix string) (*docstore.ListSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.Watch(prefix, s.listLocked(prefix)), nil
}

func (s *Store) List(_ context.Context, prefix string) ([]docstore.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(prefix), nil
}

func (s *Store) Write(_ context.Context, path string, doc docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = doc
	s.hub.Broadcast(
		docstore.Snapshot{Path: path, Exists: true, Doc: doc},
		s.listLocked(docstore.ParentPrefix(path)),
	)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; !ok {
		return nil
	}
	delete(s.docs, path)
	s.hub.Broadcast(
		docstore.Snapshot{Path: path, Exists: false},
		s.listLocked(docstore.ParentPrefix(path)),
	)
	return nil
}

// Get returns the document at path, mainly for tests.
func (s *Store) Get(path string) (docstore.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	return doc, ok
}

func (s *Store) snapshotLocked(path string) docstore.Snapshot {
	doc, ok := s.docs[path]
	return docstore.Snapshot{Path: path, Exists: ok, Doc: doc}
}

func (s *Store) listLocked(prefix string) []docstore.Entry {
	var out []docstore.Entry
	for path, doc := range s.docs {
		if docstore.ParentPrefix(path) != prefix {
			continue
		}
		out = append(out, docstore.Entry{ID: docstore.DocumentID(path), Path: path, Doc: doc})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Path, out[j].Path) < 0
	})
	return out
}
