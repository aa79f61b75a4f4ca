// Package session scopes the document store to one signed-in user and
// hands out reconcilers for individual spreadsheets.
package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"

	"gastos/internal/docstore"
	"gastos/internal/identity"
	"gastos/internal/log"
	"gastos/internal/services"
)

// AppIdentifier roots every document path. It is part of the persisted
// layout, so changing it orphans existing data.
const AppIdentifier = "controle-gastos-app"

var ErrNoSelection = errors.New("no spreadsheet selected")

// Session is the per-user entry point: listing, creating, deleting and
// opening spreadsheets under that user's collection.
type Session struct {
	user   identity.UserIdentity
	store  docstore.Store
	logger *log.Logger

	mu       sync.Mutex
	selected string // spreadsheet id, "" when none
	open     []*services.Reconciler
}

// New starts a session for user on top of store.
func New(user identity.UserIdentity, store docstore.Store, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Session{
		user:   user,
		store:  store,
		logger: logger.WithComponent("session").With("uid", user.UID),
	}
}

// CollectionPath is the user's spreadsheet collection.
func (s *Session) CollectionPath() string {
	return path.Join("apps", AppIdentifier, "users", s.user.UID, "spreadsheets")
}

// DocumentPath is the full path of one spreadsheet.
func (s *Session) DocumentPath(id string) string {
	return path.Join(s.CollectionPath(), id)
}

// Create makes a new empty spreadsheet owned by the session user and
// returns its id.
func (s *Session) Create(ctx context.Context, name string) (string, error) {
	id := uuid.NewString()
	doc := docstore.Document{
		Name:    name,
		OwnerID: s.user.UID,
		Config:  docstore.Config{},
	}
	if err := s.store.Write(ctx, s.DocumentPath(id), doc); err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}
	s.logger.InfoContext(ctx, "Spreadsheet created", "id", id, "name", name)
	return id, nil
}

// List returns the user's spreadsheets.
func (s *Session) List(ctx context.Context) ([]docstore.Entry, error) {
	return s.store.List(ctx, s.CollectionPath())
}

// Watch streams the user's spreadsheet listing as it changes.
func (s *Session) Watch(ctx context.Context) (*docstore.ListSubscription, error) {
	return s.store.Watch(ctx, s.CollectionPath())
}

// Delete removes a spreadsheet. Any reconciler open on it detaches via its
// own subscription; the session only clears its selection reference.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.DocumentPath(id)); err != nil {
		return fmt.Errorf("delete spreadsheet: %w", err)
	}

	s.mu.Lock()
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Spreadsheet deleted", "id", id)
	return nil
}

// Select marks a spreadsheet as the current one.
func (s *Session) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// Selected returns the current spreadsheet id, empty when none.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Open builds and opens a reconciler for the selected spreadsheet.
func (s *Session) Open(ctx context.Context, hooks services.Hooks) (*services.Reconciler, error) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return nil, ErrNoSelection
	}

	r := services.NewReconciler(s.store, s.DocumentPath(id), hooks, s.logger)
	if err := r.Open(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.open = append(s.open, r)
	s.mu.Unlock()
	return r, nil
}

// Close tears down every reconciler opened through this session. Used on
// sign-out, when nothing user-scoped may stay live.
func (s *Session) Close() error {
	s.mu.Lock()
	open := s.open
	s.open = nil
	s.selected = ""
	s.mu.Unlock()

	var err error
	for _, r := range open {
		if cerr := r.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// OpenByID selects id and opens a reconciler on it.
func (s *Session) OpenByID(ctx context.Context, id string, hooks services.Hooks) (*services.Reconciler, error) {
	s.Select(id)
	return s.Open(ctx, hooks)
}

// User returns the session's identity.
func (s *Session) User() identity.UserIdentity {
	return s.user
}
