// internal/store/store.go
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a monitor, collection or request id does
// not exist in the registry. Callers that apply late probe results treat
// it as "target was deleted" and no-op.
var ErrNotFound = errors.New("not found")

// Store defines the interface for registry operations. Every mutation is
// a single serialized read-modify-write against the underlying document,
// so concurrent reconciles and user edits cannot lose updates.
type Store interface {
	// Monitor operations. CreateMonitor with collectionID == "" adds to
	// the global list. GetMonitor and UpdateMonitor search the global
	// list first, then each collection, and stop at the first match.
	GetMonitors(ctx context.Context) ([]MonitorTarget, error)
	GetAllMonitors(ctx context.Context) ([]MonitorTarget, error)
	GetMonitor(ctx context.Context, id string) (*MonitorTarget, error)
	CreateMonitor(ctx context.Context, m *MonitorTarget, collectionID string) error
	UpdateMonitor(ctx context.Context, m *MonitorTarget) error
	MutateMonitor(ctx context.Context, id string, fn func(*MonitorTarget)) (*MonitorTarget, error)
	DeleteMonitor(ctx context.Context, id string) error

	// Collection operations.
	GetCollections(ctx context.Context) ([]Collection, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)
	CreateCollection(ctx context.Context, c *Collection) error
	RenameCollection(ctx context.Context, id, name string) error
	DeleteCollection(ctx context.Context, id string) error

	// Saved request operations.
	GetRequest(ctx context.Context, id string) (*SavedRequest, error)
	CreateRequest(ctx context.Context, r *SavedRequest, collectionID string) error
	UpdateRequest(ctx context.Context, r *SavedRequest) error
	DeleteRequest(ctx context.Context, id string) error

	// Close the registry.
	Close() error
}
