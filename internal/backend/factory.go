// Package backend builds the configured document store with its cleanup.
package backend

import (
	"context"
	"fmt"

	"gastos/internal/config"
	"gastos/internal/docstore"
	"gastos/internal/docstore/amqpbridge"
	"gastos/internal/docstore/firestore"
	"gastos/internal/docstore/memory"
	"gastos/internal/docstore/sqlitestore"
	"gastos/internal/log"
)

// Result bundles a ready store with its teardown. Cleanup may be nil.
type Result struct {
	Store   docstore.Store
	Cleanup func() error
}

// Close runs the cleanup when there is one.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates document store backends from application config.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent("backend")}
}

// CreateBackend builds the store named by cfg.DataBackend. The AMQP bridge,
// when configured, wraps the memory and sqlite backends to replicate
// changes between clients.
func (f *Factory) CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	switch cfg.DataBackend {
	case "memory":
		return f.createMemoryBackend(ctx, cfg)
	case "sqlite":
		return f.createSQLiteBackend(ctx, cfg)
	case "firestore":
		return f.createFirestoreBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}

func (f *Factory) createMemoryBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	store := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return f.maybeBridge(ctx, cfg, &Result{Store: store})
}

func (f *Factory) createSQLiteBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	store, err := sqlitestore.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", cfg.AMQPURL != "")

	return f.maybeBridge(ctx, cfg, &Result{Store: store, Cleanup: store.Close})
}

func (f *Factory) createFirestoreBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	store, err := firestore.New(ctx, firestore.Config{
		ProjectID:       cfg.FirestoreProjectID,
		CredentialsFile: cfg.FirestoreCredentialsFile,
		CredentialsJSON: cfg.FirestoreCredentialsJSON,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Firestore backend", "project", cfg.FirestoreProjectID)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

// maybeBridge wraps base with AMQP replication when a broker URL is set.
// A bridge connection failure is not fatal: the local backend keeps
// working without cross-client sync, matching single-device use.
func (f *Factory) maybeBridge(ctx context.Context, cfg *config.Config, base *Result) (*Result, error) {
	if cfg.AMQPURL == "" {
		return base, nil
	}

	bridged, err := amqpbridge.New(ctx, base.Store, amqpbridge.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
	}, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP bridge, continuing without sync", "error", err)
		return base, nil
	}

	f.logger.InfoContext(ctx, "Initialized AMQP bridge", "exchange", cfg.AMQPExchange)

	baseCleanup := base.Cleanup
	return &Result{
		Store: bridged,
		Cleanup: func() error {
			err := bridged.Close()
			if baseCleanup != nil {
				if cerr := baseCleanup(); err == nil {
					err = cerr
				}
			}
			return err
		},
	}, nil
}
