package requester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hostpulse/internal/store"
)

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sender := NewSender(2 * time.Second)
	result := sender.Send(context.Background(), store.SavedRequest{
		Name:    "create",
		Method:  "POST",
		URL:     srv.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"name":"x"}`,
	})

	require.True(t, result.Success)
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.NotNil(t, result.LatencyMS)
	require.Equal(t, `{"ok":true}`, result.Body)
	require.Empty(t, result.Reason)
}

func TestSendTransportFailureCarriesReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	sender := NewSender(2 * time.Second)
	result := sender.Send(context.Background(), store.SavedRequest{
		Method: "GET",
		URL:    srv.URL,
	})

	require.False(t, result.Success)
	require.NotEmpty(t, result.Reason)
	require.Nil(t, result.LatencyMS)
}

func TestSendTimeoutHasNoReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	sender := NewSender(50 * time.Millisecond)
	result := sender.Send(context.Background(), store.SavedRequest{
		Method: "GET",
		URL:    srv.URL,
	})

	require.False(t, result.Success)
	require.Empty(t, result.Reason, "timeouts follow the probe's classification: failure without a reason")
}

func TestSendInvalidMethod(t *testing.T) {
	sender := NewSender(time.Second)
	result := sender.Send(context.Background(), store.SavedRequest{
		Method: "BAD METHOD",
		URL:    "http://example.com",
	})

	require.False(t, result.Success)
	require.NotEmpty(t, result.Reason)
}
