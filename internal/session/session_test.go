package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/docstore/memory"
	"gastos/internal/identity"
	"gastos/internal/services"
)

func newSession(t *testing.T) (*Session, *memory.Store) {
	t.Helper()
	store := memory.New()
	user := identity.UserIdentity{UID: "u1", Email: "u1@example.com"}
	return New(user, store, nil), store
}

func TestSessionPaths(t *testing.T) {
	s, _ := newSession(t)

	if got, want := s.CollectionPath(), "apps/controle-gastos-app/users/u1/spreadsheets"; got != want {
		t.Errorf("CollectionPath = %q, want %q", got, want)
	}
	if got, want := s.DocumentPath("abc"), "apps/controle-gastos-app/users/u1/spreadsheets/abc"; got != want {
		t.Errorf("DocumentPath = %q, want %q", got, want)
	}
}

func TestSessionCreateAndList(t *testing.T) {
	s, store := newSession(t)
	ctx := context.Background()

	id1, err := s.Create(ctx, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id2, err := s.Create(ctx, "Viagem")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id1 == id2 {
		t.Fatal("Create returned duplicate ids")
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Doc.OwnerID != "u1" {
			t.Errorf("entry %s owner = %q, want u1", e.ID, e.Doc.OwnerID)
		}
	}

	doc, ok := store.Get(s.DocumentPath(id1))
	if !ok {
		t.Fatal("created document missing from store")
	}
	if doc.Name != "Casa" {
		t.Errorf("doc name = %q, want Casa", doc.Name)
	}
	if len(doc.Config.Categories) != 0 || len(doc.Expenses) != 0 {
		t.Error("new spreadsheet is not empty")
	}
}

func TestSessionListIsScopedToUser(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	s1 := New(identity.UserIdentity{UID: "u1"}, store, nil)
	s2 := New(identity.UserIdentity{UID: "u2"}, store, nil)

	if _, err := s1.Create(ctx, "Mine"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s2.Create(ctx, "Theirs"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, err := s1.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Doc.Name != "Mine" {
		t.Errorf("List leaked across users: %+v", entries)
	}
}

func TestSessionDeleteClearsSelection(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Select(id)

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := s.Selected(); got != "" {
		t.Errorf("Selected = %q after delete, want empty", got)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d after delete, want 0", len(entries))
	}
}

func TestSessionDeleteKeepsOtherSelection(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	keep, err := s.Create(ctx, "Keep")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	drop, err := s.Create(ctx, "Drop")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	s.Select(keep)
	if err := s.Delete(ctx, drop); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := s.Selected(); got != keep {
		t.Errorf("Selected = %q, want %q", got, keep)
	}
}

func TestSessionOpenRequiresSelection(t *testing.T) {
	s, _ := newSession(t)

	if _, err := s.Open(context.Background(), services.Hooks{}); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Open without selection = %v, want ErrNoSelection", err)
	}
}

func TestSessionOpenByID(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r, err := s.OpenByID(ctx, id, services.Hooks{})
	if err != nil {
		t.Fatalf("OpenByID failed: %v", err)
	}
	defer r.Close()

	deadline := time.Now().Add(2 * time.Second)
	for r.State() != services.StateReconciled {
		if time.Now().After(deadline) {
			t.Fatal("reconciler never reconciled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := r.Name(); got != "Casa" {
		t.Errorf("reconciler name = %q, want Casa", got)
	}
	if err := r.AddCategory("Food", core.Money{Cents: 50000}); err != nil {
		t.Errorf("AddCategory through opened reconciler failed: %v", err)
	}
}

func TestSessionCloseTearsDownReconcilers(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	r, err := s.OpenByID(ctx, id, services.Hooks{})
	if err != nil {
		t.Fatalf("OpenByID failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := s.Selected(); got != "" {
		t.Errorf("Selected = %q after Close, want empty", got)
	}
	if err := r.AddCategory("Food", core.Money{Cents: 1}); !errors.Is(err, services.ErrClosed) {
		t.Errorf("mutation after session Close = %v, want ErrClosed", err)
	}
}

func TestSessionWatch(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	sub, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer sub.Close()

	// Initial listing is empty.
	select {
	case entries := <-sub.Entries():
		if len(entries) != 0 {
			t.Fatalf("initial listing has %d entries, want 0", len(entries))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial listing")
	}

	if _, err := s.Create(ctx, "Casa"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	select {
	case entries := <-sub.Entries():
		if len(entries) != 1 || entries[0].Doc.Name != "Casa" {
			t.Fatalf("listing after create = %+v, want one Casa entry", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no listing after create")
	}
}
