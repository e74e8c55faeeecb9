// internal/metrics/prometheus.go
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hostpulse/internal/store"
)

// Prometheus metrics
var (
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostpulse_probe_duration_seconds",
			Help:    "Time spent probing targets",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host", "status"},
	)

	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostpulse_checks_total",
			Help: "Total number of reachability checks executed",
		},
		[]string{"host", "status"},
	)

	TargetStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostpulse_target_status",
			Help: "Current status of targets (0=unknown, 1=online, 2=offline)",
		},
		[]string{"target"},
	)

	ActiveTargets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_active_targets_total",
			Help: "Number of enabled targets being monitored",
		},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostpulse_store_operations_total",
			Help: "Total registry operations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

func (c *Collector) RecordCheckResult(host string, online bool, latencyMS *float64) {
	status := statusLabel(online)
	ChecksTotal.WithLabelValues(host, status).Inc()
	if latencyMS != nil {
		ProbeDuration.WithLabelValues(host, status).Observe(*latencyMS / 1000)
	}
}

func (c *Collector) UpdateTargetStatus(target string, status store.Status) {
	TargetStatus.WithLabelValues(target).Set(statusValue(status))
}

func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	targets, err := c.store.GetAllMonitors(ctx)
	if err != nil {
		StoreOperations.WithLabelValues("get_monitors", "error").Inc()
		return err
	}
	StoreOperations.WithLabelValues("get_monitors", "success").Inc()

	enabled := 0
	for _, target := range targets {
		if target.Enabled {
			enabled++
		}
	}
	ActiveTargets.Set(float64(enabled))

	return nil
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func statusLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func statusValue(status store.Status) float64 {
	switch status {
	case store.StatusOnline:
		return 1
	case store.StatusOffline:
		return 2
	default:
		return 0
	}
}
