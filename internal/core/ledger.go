package core

import (
	"strings"
	"time"
)

// CategoryLedger is the ordered collection of category definitions for one
// spreadsheet. Category names are unique case-insensitively at all times.
type CategoryLedger struct {
	items []Category
}

// NewCategoryLedger builds a ledger from an existing slice, e.g. a remote
// snapshot. The input is copied; no validation is applied because remote
// state is authoritative.
func NewCategoryLedger(items []Category) CategoryLedger {
	return CategoryLedger{items: append([]Category(nil), items...)}
}

// Items returns a copy of the categories in display order.
func (l *CategoryLedger) Items() []Category {
	return append([]Category(nil), l.items...)
}

func (l *CategoryLedger) Len() int {
	return len(l.items)
}

// IndexOf returns the ordinal of the case-insensitive name match, or -1.
func (l *CategoryLedger) IndexOf(name string) int {
	for i, c := range l.items {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Contains reports whether name matches a live category exactly
// (case-sensitive, the match used by aggregation).
func (l *CategoryLedger) Contains(name string) bool {
	for _, c := range l.items {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Add appends a category. It fails with ErrDuplicateCategory when the name
// collides case-insensitively with an existing one.
func (l *CategoryLedger) Add(name string, budget Money) error {
	name = strings.TrimSpace(name)
	c := Category{Name: name, Budget: budget}
	if err := c.Validate(); err != nil {
		return err
	}
	if l.IndexOf(name) >= 0 {
		return ErrDuplicateCategory
	}
	l.items = append(l.items, c)
	return nil
}

// Rename replaces the entry at index in place, preserving its ordinal
// position. The new name must not collide case-insensitively with any other
// category. An out-of-range index returns ErrNotFound.
func (l *CategoryLedger) Rename(index int, newName string, newBudget Money) error {
	if index < 0 || index >= len(l.items) {
		return ErrNotFound
	}
	newName = strings.TrimSpace(newName)
	c := Category{Name: newName, Budget: newBudget}
	if err := c.Validate(); err != nil {
		return err
	}
	if other := l.IndexOf(newName); other >= 0 && other != index {
		return ErrDuplicateCategory
	}
	l.items[index] = c
	return nil
}

// Remove deletes the entry at index, shifting subsequent entries left.
// Out-of-range indexes are a no-op.
func (l *CategoryLedger) Remove(index int) {
	if index < 0 || index >= len(l.items) {
		return
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
}

// ExpenseLedger is the collection of expense records for one spreadsheet.
// IDs are unique for the lifetime of the ledger, even across deletions.
type ExpenseLedger struct {
	items  []Expense
	lastID int64
}

// NewExpenseLedger builds a ledger from an existing slice, e.g. a remote
// snapshot. The id watermark is advanced past every existing id so locally
// created expenses never collide with remote ones.
func NewExpenseLedger(items []Expense) ExpenseLedger {
	l := ExpenseLedger{items: append([]Expense(nil), items...)}
	for _, e := range l.items {
		if e.ID > l.lastID {
			l.lastID = e.ID
		}
	}
	return l
}

// Items returns a copy of the expense records.
func (l *ExpenseLedger) Items() []Expense {
	return append([]Expense(nil), l.items...)
}

func (l *ExpenseLedger) Len() int {
	return len(l.items)
}

// Add records a new expense and returns it with its assigned id. The
// category string is accepted as-is; checking it against the category
// ledger is the caller's job so that expenses survive later category
// removal as orphans.
func (l *ExpenseLedger) Add(category string, amount Money) (Expense, error) {
	if err := amount.Validate(); err != nil {
		return Expense{}, err
	}
	e := Expense{
		ID:        l.nextID(),
		Category:  category,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	l.items = append(l.items, e)
	l.lastID = e.ID
	return e, nil
}

// Remove deletes the expense with the given id. Absent ids are a no-op.
func (l *ExpenseLedger) Remove(id int64) {
	for i, e := range l.items {
		if e.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// nextID derives a creation-time id that is strictly greater than every id
// ever handed out by this ledger. Wall-clock milliseconds keep ids roughly
// sortable across devices; the watermark guards against same-millisecond
// collisions.
func (l *ExpenseLedger) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	return id
}
