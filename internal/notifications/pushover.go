// internal/notifications/pushover.go - Pushover notification service
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hostpulse/internal/config"
	"hostpulse/internal/store"
)

const (
	PushoverAPIURL = "https://api.pushover.net/1/messages.json"
	UserAgent      = "hostpulse/1.0"
)

// AuthorizationState mirrors the OS notification-permission capability:
// not determined until credentials are supplied, denied when the channel
// is explicitly switched off, authorized otherwise. The monitoring core
// reads this state but never manages it.
type AuthorizationState string

const (
	AuthNotDetermined AuthorizationState = "not_determined"
	AuthDenied        AuthorizationState = "denied"
	AuthAuthorized    AuthorizationState = "authorized"
)

// PushoverClient delivers status-change alerts. Safe for concurrent use.
type PushoverClient struct {
	config     *config.PushoverConfig
	httpClient *http.Client
	throttler  *Throttler
}

// PushoverMessage is the Pushover API request payload.
type PushoverMessage struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Title     string `json:"title,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Device    string `json:"device,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

func NewPushoverClient(cfg *config.PushoverConfig) *PushoverClient {
	client := &PushoverClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if cfg.Throttle.Enabled {
		client.throttler = NewThrottler(&cfg.Throttle)
	}

	return client
}

// Authorization reports the capability state of the notification channel.
func (c *PushoverClient) Authorization() AuthorizationState {
	if c.config.APIToken == "" || c.config.UserKey == "" {
		return AuthNotDetermined
	}
	if !c.config.Enabled {
		return AuthDenied
	}
	return AuthAuthorized
}

// NotifyStatusChange sends an alert for an online<->offline transition.
// Delivery is best effort; failures are logged, never propagated.
func (c *PushoverClient) NotifyStatusChange(ctx context.Context, target store.MonitorTarget, previous store.Status) {
	if c.Authorization() != AuthAuthorized {
		return
	}

	if c.throttler != nil && !c.throttler.Allow(target.ID) {
		logrus.WithField("target", target.Name).Debug("Notification throttled")
		return
	}

	title := fmt.Sprintf("%s is back online", target.Name)
	if target.Status == store.StatusOffline {
		title = fmt.Sprintf("%s went offline", target.Name)
	}

	body := fmt.Sprintf("Host: %s\nStatus: %s (was %s)", target.Host, target.Status, previous)
	if target.LatencyMS != nil {
		body += fmt.Sprintf("\nLatency: %.0f ms", *target.LatencyMS)
	}
	if target.LastError != "" {
		body += fmt.Sprintf("\nError: %s", target.LastError)
	}

	msg := PushoverMessage{
		Token:     c.config.APIToken,
		User:      c.config.UserKey,
		Title:     title,
		Message:   body,
		Priority:  c.config.Priority,
		Sound:     c.config.Sound,
		Device:    c.config.Device,
		Timestamp: time.Now().Unix(),
	}

	if err := c.send(ctx, msg); err != nil {
		logrus.WithError(err).WithField("target", target.Name).Error("Failed to send notification")
		return
	}

	logrus.WithFields(logrus.Fields{
		"target": target.Name,
		"status": target.Status,
	}).Info("Sent status-change notification")
}

func (c *PushoverClient) send(ctx context.Context, msg PushoverMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, PushoverAPIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Pushover API: %w", err)
	}
	defer resp.Body.Close()

	var parsed pushoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Status != 1 {
		return fmt.Errorf("pushover rejected message: %v", parsed.Errors)
	}

	return nil
}

// Throttler rate-limits notifications per target and in total over a
// sliding window.
type Throttler struct {
	config       *config.ThrottleConfig
	mu           sync.Mutex
	targetCounts map[string][]time.Time
	totalCounts  []time.Time
}

func NewThrottler(cfg *config.ThrottleConfig) *Throttler {
	return &Throttler{
		config:       cfg,
		targetCounts: make(map[string][]time.Time),
	}
}

// Allow records an attempted send and reports whether it may proceed.
func (t *Throttler) Allow(targetID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-t.config.Window)

	t.totalCounts = trimBefore(t.totalCounts, cutoff)
	t.targetCounts[targetID] = trimBefore(t.targetCounts[targetID], cutoff)

	if len(t.totalCounts) >= t.config.MaxTotal {
		return false
	}
	if len(t.targetCounts[targetID]) >= t.config.MaxPerTarget {
		return false
	}

	t.totalCounts = append(t.totalCounts, now)
	t.targetCounts[targetID] = append(t.targetCounts[targetID], now)
	return true
}

func trimBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, ts := range times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
