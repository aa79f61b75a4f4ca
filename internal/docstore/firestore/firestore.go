// Package firestore backs the document store with Google Cloud Firestore,
// the production multi-client backend. Firestore's own snapshot listeners
// provide the cross-device change stream.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gastos/internal/docstore"
	"gastos/internal/log"
)

type Store struct {
	client *firestore.Client
	logger *log.Logger
}

// Config holds Firestore connection settings.
type Config struct {
	ProjectID       string
	CredentialsFile string // optional, ADC is used when empty
	CredentialsJSON string // optional, takes precedence over the file
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore: project id is required")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent("firestore")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &Store{client: client, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Subscribe(ctx context.Context, path string) (*docstore.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	iter := s.client.Doc(path).Snapshots(ctx)

	sub := docstore.NewSubscription(func() {
		cancel()
		iter.Stop()
	})

	go func() {
		for {
			ds, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					s.logger.WarnContext(ctx, "Snapshot stream ended", "path", path, "error", err)
				}
				return
			}
			snap := docstore.Snapshot{Path: path, Exists: ds.Exists()}
			if ds.Exists() {
				doc, err := decodeDocument(ds.Data())
				if err != nil {
					s.logger.ErrorContext(ctx, "Undecodable document skipped", "path", path, "error", err)
					continue
				}
				snap.Doc = doc
			}
			sub.Publish(snap)
		}
	}()

	return sub, nil
}

func (s *Store) Watch(ctx context.Context, prefix string) (*docstore.ListSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	iter := s.client.Collection(prefix).Snapshots(ctx)

	sub := docstore.NewListSubscription(func() {
		cancel()
		iter.Stop()
	})

	go func() {
		for {
			qs, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					s.logger.WarnContext(ctx, "Listing stream ended", "prefix", prefix, "error", err)
				}
				return
			}
			entries, err := collectEntries(prefix, qs.Documents)
			if err != nil {
				s.logger.ErrorContext(ctx, "Undecodable listing skipped", "prefix", prefix, "error", err)
				continue
			}
			sub.Publish(entries)
		}
	}()

	return sub, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]docstore.Entry, error) {
	return collectEntries(prefix, s.client.Collection(prefix).Documents(ctx))
}

func (s *Store) Write(ctx context.Context, path string, doc docstore.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if _, err := s.client.Doc(path).Set(ctx, data); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		return fmt.Errorf("delete document %s: %w", path, err)
	}
	return nil
}

func collectEntries(prefix string, docs *firestore.DocumentIterator) ([]docstore.Entry, error) {
	snaps, err := docs.GetAll()
	if err != nil {
		return nil, fmt.Errorf("list documents %s: %w", prefix, err)
	}
	entries := make([]docstore.Entry, 0, len(snaps))
	for _, ds := range snaps {
		doc, err := decodeDocument(ds.Data())
		if err != nil {
			return nil, fmt.Errorf("decode document %s: %w", ds.Ref.ID, err)
		}
		entries = append(entries, docstore.Entry{
			ID:   ds.Ref.ID,
			Path: prefix + "/" + ds.Ref.ID,
			Doc:  doc,
		})
	}
	return entries, nil
}

// The document schema already has a JSON form; round-tripping through it
// keeps Firestore's field layout identical to the other backends.
func encodeDocument(doc docstore.Document) (map[string]interface{}, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decodeDocument(data map[string]interface{}) (docstore.Document, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return docstore.Document{}, err
	}
	var doc docstore.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return docstore.Document{}, err
	}
	return doc, nil
}
