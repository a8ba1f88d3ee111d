package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the persistence backend. Backend selection, in order:
// NOOK_DATABASE_URL (hosted PostgreSQL), NOOK_SQLITE_PATH (local SQLite,
// default "nook.db"). Setting NOOK_SQLITE_PATH=off starts the module
// unconfigured: Store() returns nil and consumers run in ephemeral mode.
type Module struct {
	store  Store
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new storage module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "storage"
}

// Start opens the configured backend.
func (m *Module) Start(ctx context.Context) error {
	if databaseURL := os.Getenv("NOOK_DATABASE_URL"); databaseURL != "" {
		store, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres backend: %w", err)
		}
		m.store = store
		m.logger.Info("Storage module started", "backend", "postgres")
		return nil
	}

	path := os.Getenv("NOOK_SQLITE_PATH")
	if path == "off" {
		m.logger.Warn("Storage not configured; running with ephemeral in-memory fallbacks")
		return nil
	}
	if path == "" {
		path = "nook.db"
	}

	store, err := OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite backend: %w", err)
	}
	m.store = store
	m.logger.Info("Storage module started", "backend", "sqlite", "path", path)
	return nil
}

// Stop closes the backend.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}
	m.logger.Info("Storage module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "unconfigured (ephemeral mode)",
		}
	}
	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Store returns the active backend, or nil when storage is unconfigured.
func (m *Module) Store() Store {
	return m.store
}
