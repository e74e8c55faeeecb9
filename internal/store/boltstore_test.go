package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	s, err := NewBoltStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func TestMonitorCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := &MonitorTarget{
		Name:            "web",
		Host:            "example.com",
		Enabled:         true,
		IntervalSeconds: 30,
	}
	require.NoError(t, s.CreateMonitor(ctx, m, ""))
	require.NotEmpty(t, m.ID)
	require.Equal(t, StatusUnknown, m.Status)
	require.Equal(t, StatusUnknown, m.PreviousStatus)

	got, err := s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "example.com", got.Host)
	require.Nil(t, got.Port)

	got.Port = intPtr(8443)
	got.Name = "web-tls"
	require.NoError(t, s.UpdateMonitor(ctx, got))

	got, err = s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "web-tls", got.Name)
	require.NotNil(t, got.Port)
	require.Equal(t, 8443, *got.Port)

	require.NoError(t, s.DeleteMonitor(ctx, m.ID))
	_, err = s.GetMonitor(ctx, m.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGroupedMonitors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	col := &Collection{Name: "production"}
	require.NoError(t, s.CreateCollection(ctx, col))

	global := &MonitorTarget{Name: "global", Host: "a.example.com", Enabled: true}
	grouped := &MonitorTarget{Name: "grouped", Host: "b.example.com", Enabled: true}
	require.NoError(t, s.CreateMonitor(ctx, global, ""))
	require.NoError(t, s.CreateMonitor(ctx, grouped, col.ID))

	// Lookup finds grouped monitors after scanning the global list.
	got, err := s.GetMonitor(ctx, grouped.ID)
	require.NoError(t, err)
	require.Equal(t, "b.example.com", got.Host)

	globals, err := s.GetMonitors(ctx)
	require.NoError(t, err)
	require.Len(t, globals, 1)

	all, err := s.GetAllMonitors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Updates reach monitors embedded in their collection.
	got.Name = "renamed"
	require.NoError(t, s.UpdateMonitor(ctx, got))
	fetched, err := s.GetCollection(ctx, col.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", fetched.Monitors[0].Name)

	// Deleting the collection removes its monitors with it.
	require.NoError(t, s.DeleteCollection(ctx, col.ID))
	_, err = s.GetMonitor(ctx, grouped.ID)
	require.ErrorIs(t, err, ErrNotFound)

	all, err = s.GetAllMonitors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestCreateMonitorUnknownCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := &MonitorTarget{Name: "x", Host: "x.example.com"}
	require.ErrorIs(t, s.CreateMonitor(ctx, m, "missing"), ErrNotFound)
}

func TestMutateMonitor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := &MonitorTarget{Name: "m", Host: "example.com", Enabled: true}
	require.NoError(t, s.CreateMonitor(ctx, m, ""))

	updated, err := s.MutateMonitor(ctx, m.ID, func(t *MonitorTarget) {
		t.PreviousStatus = t.Status
		t.Status = StatusOnline
	})
	require.NoError(t, err)
	require.Equal(t, StatusOnline, updated.Status)
	require.Equal(t, StatusUnknown, updated.PreviousStatus)

	got, err := s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOnline, got.Status)

	_, err = s.MutateMonitor(ctx, "missing", func(t *MonitorTarget) {})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionRename(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	col := &Collection{Name: "old"}
	require.NoError(t, s.CreateCollection(ctx, col))
	require.NoError(t, s.RenameCollection(ctx, col.ID, "new"))

	got, err := s.GetCollection(ctx, col.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.Name)

	require.ErrorIs(t, s.RenameCollection(ctx, "missing", "x"), ErrNotFound)
}

func TestSavedRequests(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	col := &Collection{Name: "apis"}
	require.NoError(t, s.CreateCollection(ctx, col))

	r := &SavedRequest{
		Name:   "list users",
		Method: "GET",
		URL:    "https://api.example.com/users",
	}
	require.NoError(t, s.CreateRequest(ctx, r, col.ID))
	require.NotEmpty(t, r.ID)

	got, err := s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "GET", got.Method)

	got.Method = "POST"
	got.Body = `{"name":"sam"}`
	require.NoError(t, s.UpdateRequest(ctx, got))

	got, err = s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "POST", got.Method)

	require.NoError(t, s.DeleteRequest(ctx, r.ID))
	_, err = s.GetRequest(ctx, r.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)

	m := &MonitorTarget{Name: "durable", Host: "example.com", Enabled: true}
	require.NoError(t, s.CreateMonitor(ctx, m, ""))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "durable", got.Name)
}
