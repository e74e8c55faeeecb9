// internal/requester/requester.go - executes saved HTTP requests
package requester

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hostpulse/internal/store"
)

const (
	// DefaultTimeout matches the reachability probe bound.
	DefaultTimeout = 5 * time.Second

	// maxBodyBytes caps how much response body is returned to clients.
	maxBodyBytes = 1 << 20
)

// Result is the outcome of executing a saved request. The error
// classification follows the probe's: Reason carries the transport
// failure, and stays empty when the request simply timed out.
type Result struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMS  *float64  `json:"latency_ms,omitempty"`
	Body       string    `json:"body,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

type Sender struct {
	client  *http.Client
	timeout time.Duration
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Send executes the saved request once. Failures are normalized into the
// Result, never returned as errors.
func (s *Sender) Send(ctx context.Context, saved store.SavedRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if saved.Body != "" {
		body = strings.NewReader(saved.Body)
	}

	req, err := http.NewRequestWithContext(ctx, saved.Method, saved.URL, body)
	if err != nil {
		return Result{Reason: err.Error(), SentAt: time.Now()}
	}
	for k, v := range saved.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		result := Result{SentAt: time.Now()}
		if !isTimeout(err) {
			result.Reason = err.Error()
		}
		logrus.WithFields(logrus.Fields{
			"request": saved.Name,
			"url":     saved.URL,
			"reason":  result.Reason,
		}).Debug("Request failed")
		return result
	}
	defer resp.Body.Close()

	latency := time.Since(start).Seconds() * 1000
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	return Result{
		Success:    true,
		StatusCode: resp.StatusCode,
		LatencyMS:  &latency,
		Body:       string(data),
		SentAt:     time.Now(),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
