package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hostpulse/internal/config"
	"hostpulse/internal/metrics"
	"hostpulse/internal/monitoring"
	"hostpulse/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store, *monitoring.Engine) {
	t.Helper()

	cfg := config.Default()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	collector := metrics.NewCollector(st)
	engine := monitoring.NewEngine(cfg, st, collector)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, engine.Start(ctx))
	t.Cleanup(func() {
		engine.Stop()
		cancel()
	})

	return NewServer(cfg, st, engine, collector), st, engine
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decodeMonitor(t *testing.T, w *httptest.ResponseRecorder) store.MonitorTarget {
	t.Helper()

	var resp struct {
		Data store.MonitorTarget `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func lastChecked(t *testing.T, st store.Store, id string) time.Time {
	t.Helper()

	m, err := st.GetMonitor(context.Background(), id)
	require.NoError(t, err)
	if m.LastChecked == nil {
		return time.Time{}
	}
	return *m.LastChecked
}

// localListener accepts and immediately closes connections, standing in
// for a reachable host.
func localListener(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// A monitor armed through the API must keep its schedule alive long
// after the creating request has returned.
func TestMonitorLifecycleOverAPI(t *testing.T) {
	srv, st, engine := newTestServer(t)
	port := localListener(t)

	w := doJSON(t, srv, http.MethodPost, "/api/monitors", map[string]any{
		"name":             "local",
		"host":             "127.0.0.1",
		"port":             port,
		"interval_seconds": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeMonitor(t, w).ID
	require.NotEmpty(t, id)
	require.True(t, engine.TargetScheduled(id))

	// The reachable target goes online, not offline.
	require.Eventually(t, func() bool {
		m, err := st.GetMonitor(context.Background(), id)
		require.NoError(t, err)
		return m.Status == store.StatusOnline
	}, 3*time.Second, 25*time.Millisecond)

	// And checks keep ticking after the handler returned.
	first := lastChecked(t, st, id)
	require.Eventually(t, func() bool {
		return lastChecked(t, st, id).After(first)
	}, 3*time.Second, 25*time.Millisecond)

	// Disabling stops the cadence.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, engine.TargetScheduled(id))

	// A check already in flight at stop time may still land; let it.
	time.Sleep(250 * time.Millisecond)
	settled := lastChecked(t, st, id)
	time.Sleep(1500 * time.Millisecond)
	require.True(t, settled.Equal(lastChecked(t, st, id)), "no checks may fire while disabled")

	// Re-enabling runs an immediate check before the cadence resumes.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, engine.TargetScheduled(id))
	require.Eventually(t, func() bool {
		return lastChecked(t, st, id).After(settled)
	}, time.Second, 25*time.Millisecond)
}

func TestUpdateMonitorPatchesOnlySuppliedFields(t *testing.T) {
	srv, st, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/monitors", map[string]any{
		"name":    "api",
		"host":    "example.com",
		"port":    8080,
		"enabled": false,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeMonitor(t, w).ID

	// Renaming alone leaves host and port untouched.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"name": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	m, err := st.GetMonitor(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "renamed", m.Name)
	require.Equal(t, "example.com", m.Host)
	require.NotNil(t, m.Port)
	require.Equal(t, 8080, *m.Port)

	// An explicit port of 0 clears the override back to the default.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"port": 0})
	require.Equal(t, http.StatusOK, w.Code)

	m, err = st.GetMonitor(context.Background(), id)
	require.NoError(t, err)
	require.Nil(t, m.Port)

	// Out-of-range ports are still rejected.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"port": 70000})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// An empty host is rejected rather than wiping the target.
	w = doJSON(t, srv, http.MethodPut, "/api/monitors/"+id, map[string]any{"host": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	m, err = st.GetMonitor(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "example.com", m.Host)
}
