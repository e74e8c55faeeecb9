// internal/store/boltstore.go - BoltDB-backed registry
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// The registry mirrors the mobile app's key-value layout: one key holds
// the global monitors list, one key holds the collections list with each
// collection embedding its own monitors and requests. No schema version.
var (
	RegistryBucket = []byte("registry")
	MonitorsKey    = []byte("monitors")
	CollectionsKey = []byte("collections")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBucket(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize registry bucket: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(RegistryBucket)
		return err
	})
}

func readMonitors(tx *bbolt.Tx) ([]MonitorTarget, error) {
	v := tx.Bucket(RegistryBucket).Get(MonitorsKey)
	if v == nil {
		return nil, nil
	}
	var monitors []MonitorTarget
	if err := json.Unmarshal(v, &monitors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal monitors: %w", err)
	}
	return monitors, nil
}

func writeMonitors(tx *bbolt.Tx, monitors []MonitorTarget) error {
	data, err := json.Marshal(monitors)
	if err != nil {
		return fmt.Errorf("failed to marshal monitors: %w", err)
	}
	return tx.Bucket(RegistryBucket).Put(MonitorsKey, data)
}

func readCollections(tx *bbolt.Tx) ([]Collection, error) {
	v := tx.Bucket(RegistryBucket).Get(CollectionsKey)
	if v == nil {
		return nil, nil
	}
	var collections []Collection
	if err := json.Unmarshal(v, &collections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collections: %w", err)
	}
	return collections, nil
}

func writeCollections(tx *bbolt.Tx, collections []Collection) error {
	data, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("failed to marshal collections: %w", err)
	}
	return tx.Bucket(RegistryBucket).Put(CollectionsKey, data)
}

func (s *BoltStore) GetMonitors(ctx context.Context) ([]MonitorTarget, error) {
	var monitors []MonitorTarget

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		monitors, err = readMonitors(tx)
		return err
	})

	return monitors, err
}

func (s *BoltStore) GetAllMonitors(ctx context.Context) ([]MonitorTarget, error) {
	var all []MonitorTarget

	err := s.db.View(func(tx *bbolt.Tx) error {
		monitors, err := readMonitors(tx)
		if err != nil {
			return err
		}
		all = append(all, monitors...)

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for _, c := range collections {
			all = append(all, c.Monitors...)
		}
		return nil
	})

	return all, err
}

func (s *BoltStore) GetMonitor(ctx context.Context, id string) (*MonitorTarget, error) {
	var found *MonitorTarget

	err := s.db.View(func(tx *bbolt.Tx) error {
		monitors, err := readMonitors(tx)
		if err != nil {
			return err
		}
		for i := range monitors {
			if monitors[i].ID == id {
				found = &monitors[i]
				return nil
			}
		}

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for mi := range collections[ci].Monitors {
				if collections[ci].Monitors[mi].ID == id {
					found = &collections[ci].Monitors[mi]
					return nil
				}
			}
		}
		return ErrNotFound
	})

	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *BoltStore) CreateMonitor(ctx context.Context, m *MonitorTarget, collectionID string) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = StatusUnknown
	}
	if m.PreviousStatus == "" {
		m.PreviousStatus = StatusUnknown
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		if collectionID == "" {
			monitors, err := readMonitors(tx)
			if err != nil {
				return err
			}
			return writeMonitors(tx, append(monitors, *m))
		}

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for i := range collections {
			if collections[i].ID == collectionID {
				collections[i].Monitors = append(collections[i].Monitors, *m)
				collections[i].UpdatedAt = time.Now()
				return writeCollections(tx, collections)
			}
		}
		return ErrNotFound
	})
}

// UpdateMonitor replaces the stored monitor with the same id, looking in
// the global list first and then in each collection, first match wins.
func (s *BoltStore) UpdateMonitor(ctx context.Context, m *MonitorTarget) error {
	m.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		monitors, err := readMonitors(tx)
		if err != nil {
			return err
		}
		for i := range monitors {
			if monitors[i].ID == m.ID {
				monitors[i] = *m
				return writeMonitors(tx, monitors)
			}
		}

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for mi := range collections[ci].Monitors {
				if collections[ci].Monitors[mi].ID == m.ID {
					collections[ci].Monitors[mi] = *m
					return writeCollections(tx, collections)
				}
			}
		}
		return ErrNotFound
	})
}

// MutateMonitor runs fn against the stored monitor inside a single write
// transaction. The reconciler uses this so a probe result and a user edit
// can never interleave their read-modify-write cycles.
func (s *BoltStore) MutateMonitor(ctx context.Context, id string, fn func(*MonitorTarget)) (*MonitorTarget, error) {
	var updated *MonitorTarget

	err := s.db.Update(func(tx *bbolt.Tx) error {
		monitors, err := readMonitors(tx)
		if err != nil {
			return err
		}
		for i := range monitors {
			if monitors[i].ID == id {
				fn(&monitors[i])
				monitors[i].UpdatedAt = time.Now()
				updated = &monitors[i]
				return writeMonitors(tx, monitors)
			}
		}

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for mi := range collections[ci].Monitors {
				if collections[ci].Monitors[mi].ID == id {
					fn(&collections[ci].Monitors[mi])
					collections[ci].Monitors[mi].UpdatedAt = time.Now()
					updated = &collections[ci].Monitors[mi]
					return writeCollections(tx, collections)
				}
			}
		}
		return ErrNotFound
	})

	if err != nil {
		return nil, err
	}
	out := *updated
	return &out, nil
}

func (s *BoltStore) DeleteMonitor(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		monitors, err := readMonitors(tx)
		if err != nil {
			return err
		}
		for i := range monitors {
			if monitors[i].ID == id {
				return writeMonitors(tx, append(monitors[:i], monitors[i+1:]...))
			}
		}

		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for mi := range collections[ci].Monitors {
				if collections[ci].Monitors[mi].ID == id {
					c := &collections[ci]
					c.Monitors = append(c.Monitors[:mi], c.Monitors[mi+1:]...)
					c.UpdatedAt = time.Now()
					return writeCollections(tx, collections)
				}
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) GetCollections(ctx context.Context) ([]Collection, error) {
	var collections []Collection

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		collections, err = readCollections(tx)
		return err
	})

	return collections, err
}

func (s *BoltStore) GetCollection(ctx context.Context, id string) (*Collection, error) {
	var found *Collection

	err := s.db.View(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for i := range collections {
			if collections[i].ID == id {
				found = &collections[i]
				return nil
			}
		}
		return ErrNotFound
	})

	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *BoltStore) CreateCollection(ctx context.Context, c *Collection) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Monitors == nil {
		c.Monitors = []MonitorTarget{}
	}
	if c.Requests == nil {
		c.Requests = []SavedRequest{}
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		return writeCollections(tx, append(collections, *c))
	})
}

func (s *BoltStore) RenameCollection(ctx context.Context, id, name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for i := range collections {
			if collections[i].ID == id {
				collections[i].Name = name
				collections[i].UpdatedAt = time.Now()
				return writeCollections(tx, collections)
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) DeleteCollection(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for i := range collections {
			if collections[i].ID == id {
				return writeCollections(tx, append(collections[:i], collections[i+1:]...))
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) GetRequest(ctx context.Context, id string) (*SavedRequest, error) {
	var found *SavedRequest

	err := s.db.View(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for ri := range collections[ci].Requests {
				if collections[ci].Requests[ri].ID == id {
					found = &collections[ci].Requests[ri]
					return nil
				}
			}
		}
		return ErrNotFound
	})

	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *BoltStore) CreateRequest(ctx context.Context, r *SavedRequest, collectionID string) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for i := range collections {
			if collections[i].ID == collectionID {
				collections[i].Requests = append(collections[i].Requests, *r)
				collections[i].UpdatedAt = time.Now()
				return writeCollections(tx, collections)
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) UpdateRequest(ctx context.Context, r *SavedRequest) error {
	r.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for ri := range collections[ci].Requests {
				if collections[ci].Requests[ri].ID == r.ID {
					collections[ci].Requests[ri] = *r
					return writeCollections(tx, collections)
				}
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) DeleteRequest(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		collections, err := readCollections(tx)
		if err != nil {
			return err
		}
		for ci := range collections {
			for ri := range collections[ci].Requests {
				if collections[ci].Requests[ri].ID == id {
					c := &collections[ci]
					c.Requests = append(c.Requests[:ri], c.Requests[ri+1:]...)
					c.UpdatedAt = time.Now()
					return writeCollections(tx, collections)
				}
			}
		}
		return ErrNotFound
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
