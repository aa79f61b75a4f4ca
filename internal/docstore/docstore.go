// Package docstore defines the remote document store boundary: per-path
// documents holding one spreadsheet each, whole-document writes, and
// subscription streams of full-document snapshots.
package docstore

import (
	"context"
	"errors"
	"strings"

	"gastos/internal/core"
)

// Document is the wire shape of one spreadsheet, read and written wholesale.
type Document struct {
	Name     string         `json:"name"`
	OwnerID  string         `json:"ownerId"`
	Config   Config         `json:"config"`
	Expenses []core.Expense `json:"expenses"`
}

// Config nests the category list, mirroring the stored document layout.
type Config struct {
	Categories []core.Category `json:"categories"`
}

// Snapshot is a complete point-in-time copy of a document. Exists is false
// when the document has been confirmed deleted.
type Snapshot struct {
	Path   string
	Exists bool
	Doc    Document
}

// Entry is one document in a collection listing.
type Entry struct {
	ID   string
	Path string
	Doc  Document
}

// ErrNotFound reports a read of a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the remote document store collaborator. Implementations deliver
// at least the latest state on every subscription; intermediate states may
// be skipped when the consumer lags.
type Store interface {
	// Subscribe opens a live snapshot stream for one document. The current
	// state (existing or not) is delivered as the first snapshot.
	Subscribe(ctx context.Context, path string) (*Subscription, error)

	// Watch opens a live stream over a collection prefix, delivering the
	// full entry list on every change. The current list is delivered first.
	Watch(ctx context.Context, prefix string) (*ListSubscription, error)

	// List returns the documents under a collection prefix.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Write replaces the document at path wholesale, creating it if needed.
	Write(ctx context.Context, path string, doc Document) error

	// Delete removes the document at path. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context, path string) error
}

// ParentPrefix returns the collection prefix of a document path, or "" for
// top-level paths.
func ParentPrefix(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// DocumentID returns the last segment of a document path.
func DocumentID(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}
	return path[i+1:]
}
