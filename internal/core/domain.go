package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Category is a named budget bucket. Its identity is the name at its
	// ordinal position; the display order of categories is significant.
	Category struct {
		Name   string `json:"name"`
		Budget Money  `json:"budget"`
	}

	// Expense is a single spending record. It references a category by name
	// and is never mutated after creation.
	Expense struct {
		ID        int64     `json:"id"`
		Category  string    `json:"category"`
		Amount    Money     `json:"amount"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// Validation errors, rejected before any mutation is applied.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidBudget     = errors.New("invalid budget")
	ErrEmptyName         = errors.New("empty category name")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrUnknownCategory   = errors.New("unknown category")
)

// ErrNotFound reports an operation addressing a category ordinal that does
// not exist. Unlike removals, which are idempotent, a rename of a missing
// entry is a caller bug and is surfaced.
var ErrNotFound = errors.New("category not found")

// IsValidation reports whether err is a bad-user-input error. Validation
// failures leave the ledgers untouched and are surfaced synchronously.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidBudget) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrDuplicateCategory) ||
		errors.Is(err, ErrUnknownCategory)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Budget.Cents < 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrUnknownCategory
	}
	return e.Amount.Validate()
}
