package core

import (
	"errors"
	"testing"
)

func TestCategoryLedgerAdd(t *testing.T) {
	var l CategoryLedger

	if err := l.Add("Food", Money{Cents: 10000}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := l.Add("food", Money{Cents: 20000}); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory for case-insensitive collision, got %v", err)
	}
	if err := l.Add("  ", Money{Cents: 100}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := l.Add("Fuel", Money{Cents: -1}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	if err := l.Add("Fuel", Money{Cents: 0}); err != nil {
		t.Fatalf("zero budget is allowed, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 categories, got %d", l.Len())
	}
	for _, err := range []error{ErrDuplicateCategory, ErrEmptyName, ErrInvalidBudget} {
		if !IsValidation(err) {
			t.Fatalf("%v should classify as validation", err)
		}
	}
}

func TestCategoryLedgerAddRemoveRoundTrip(t *testing.T) {
	var l CategoryLedger
	for _, name := range []string{"Rent", "Fuel", "Fun"} {
		if err := l.Add(name, Money{Cents: 1000}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	before := l.Items()

	if err := l.Add("Food", Money{Cents: 50000}); err != nil {
		t.Fatalf("add: %v", err)
	}
	l.Remove(l.IndexOf("Food"))

	after := l.Items()
	if len(after) != len(before) {
		t.Fatalf("expected %d categories, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("position %d changed: %+v != %+v", i, after[i], before[i])
		}
	}
}

func TestCategoryLedgerRename(t *testing.T) {
	var l CategoryLedger
	_ = l.Add("Food", Money{Cents: 50000})
	_ = l.Add("Fuel", Money{Cents: 20000})

	if err := l.Rename(0, "Groceries", Money{Cents: 60000}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	items := l.Items()
	if items[0].Name != "Groceries" || items[0].Budget.Cents != 60000 {
		t.Fatalf("unexpected entry after rename: %+v", items[0])
	}
	if items[1].Name != "Fuel" {
		t.Fatalf("rename must not disturb other entries, got %+v", items[1])
	}

	// The entry may keep its own name with a new budget.
	if err := l.Rename(1, "fuel", Money{Cents: 25000}); err != nil {
		t.Fatalf("rename to own name: %v", err)
	}

	if err := l.Rename(1, "GROCERIES", Money{Cents: 100}); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if err := l.Rename(0, "", Money{Cents: 100}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := l.Rename(0, "Ok", Money{Cents: -1}); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	if err := l.Rename(99, "Ok", Money{Cents: 100}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-range rename, got %v", err)
	}
	if err := l.Rename(-1, "Ok", Money{Cents: 100}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for negative index, got %v", err)
	}
}

func TestCategoryLedgerRemoveShiftsLeft(t *testing.T) {
	var l CategoryLedger
	for _, name := range []string{"A", "B", "C"} {
		_ = l.Add(name, Money{Cents: 100})
	}

	l.Remove(1)
	items := l.Items()
	if len(items) != 2 || items[0].Name != "A" || items[1].Name != "C" {
		t.Fatalf("unexpected order after removal: %+v", items)
	}

	// Out-of-range removals are no-ops.
	l.Remove(-1)
	l.Remove(5)
	if l.Len() != 2 {
		t.Fatalf("expected 2 categories, got %d", l.Len())
	}
}

func TestExpenseLedgerAdd(t *testing.T) {
	var l ExpenseLedger

	e, err := l.Add("Food", Money{Cents: 1500})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.ID == 0 || e.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", e)
	}

	if _, err := l.Add("Food", Money{Cents: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Add("Food", Money{Cents: -10}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("failed adds must not grow the ledger, got %d items", l.Len())
	}
}

func TestExpenseLedgerIDsNeverCollide(t *testing.T) {
	var l ExpenseLedger
	seen := map[int64]bool{}

	for i := 0; i < 100; i++ {
		e, err := l.Add("Food", Money{Cents: 100})
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if seen[e.ID] {
			t.Fatalf("id %d reused", e.ID)
		}
		seen[e.ID] = true
		if i%3 == 0 {
			l.Remove(e.ID)
		}
	}
}

func TestExpenseLedgerRemoveIdempotent(t *testing.T) {
	var l ExpenseLedger
	e, _ := l.Add("Food", Money{Cents: 100})

	l.Remove(e.ID)
	l.Remove(e.ID) // absent id is a no-op
	l.Remove(42)

	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d items", l.Len())
	}
}

func TestNewExpenseLedgerWatermark(t *testing.T) {
	far := int64(1<<62 - 1)
	l := NewExpenseLedger([]Expense{{ID: far, Category: "Food", Amount: Money{Cents: 100}}})

	e, err := l.Add("Food", Money{Cents: 200})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.ID <= far {
		t.Fatalf("expected id above snapshot watermark %d, got %d", far, e.ID)
	}
}
