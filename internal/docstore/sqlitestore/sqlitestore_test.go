package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/docstore"
)

const testPath = "apps/gastos/users/u1/spreadsheets/s1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "gastos.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDoc() docstore.Document {
	return docstore.Document{
		Name:    "Casa",
		OwnerID: "u1",
		Config: docstore.Config{
			Categories: []core.Category{{Name: "Food", Budget: core.Money{Cents: 50000}}},
		},
		Expenses: []core.Expense{
			{ID: 7, Category: "Food", Amount: core.Money{Cents: 1250}, CreatedAt: time.Unix(1700000000, 0).UTC()},
		},
	}
}

func TestWriteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gastos.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Write(ctx, testPath, testDoc()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	sub, err := reopened.Subscribe(ctx, testPath)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	snap := <-sub.Snapshots()
	if !snap.Exists {
		t.Fatalf("expected persisted document after reopen")
	}
	if snap.Doc.Name != "Casa" || len(snap.Doc.Config.Categories) != 1 || len(snap.Doc.Expenses) != 1 {
		t.Fatalf("unexpected document: %+v", snap.Doc)
	}
	if snap.Doc.Expenses[0].Amount.Cents != 1250 {
		t.Fatalf("expected 1250 cents, got %d", snap.Doc.Expenses[0].Amount.Cents)
	}
}

func TestSubscribeSeesLiveWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sub, err := s.Subscribe(ctx, testPath)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if snap := <-sub.Snapshots(); snap.Exists {
		t.Fatalf("expected missing document first, got %+v", snap)
	}

	if err := s.Write(ctx, testPath, testDoc()); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case snap := <-sub.Snapshots():
		if !snap.Exists || snap.Doc.Name != "Casa" {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for write snapshot")
	}

	if err := s.Delete(ctx, testPath); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case snap := <-sub.Snapshots():
		if snap.Exists {
			t.Fatalf("expected deletion snapshot, got %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delete snapshot")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	prefix := "apps/gastos/users/u1/spreadsheets"

	_ = s.Write(ctx, prefix+"/b", testDoc())
	_ = s.Write(ctx, prefix+"/a", testDoc())
	_ = s.Write(ctx, "apps/gastos/users/u2/spreadsheets/c", testDoc())

	entries, err := s.List(ctx, prefix)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("unexpected listing: %+v", entries)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Delete(ctx, testPath); err != nil {
		t.Fatalf("delete of absent document should not error: %v", err)
	}
}
