// internal/monitoring/reconciler.go - folds probe results into the registry
package monitoring

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"hostpulse/internal/metrics"
	"hostpulse/internal/store"
)

// StatusListener is invoked for every alert-worthy transition, that is an
// online<->offline flip. Transitions into or out of unknown never fire.
type StatusListener func(target store.MonitorTarget, previous store.Status)

// Reconciler applies check results back into the target registry.
type Reconciler struct {
	store   store.Store
	metrics *metrics.Collector

	mu        sync.RWMutex
	listeners []StatusListener
}

func NewReconciler(st store.Store, collector *metrics.Collector) *Reconciler {
	return &Reconciler{
		store:   st,
		metrics: collector,
	}
}

// Subscribe registers a listener for alert-worthy status changes.
func (r *Reconciler) Subscribe(listener StatusListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// Apply writes a probe result into the stored target: the status pair
// rolls forward, latency and error are set or cleared, and lastChecked
// records the probe completion time. A completed check always lands on
// online or offline, never unknown. Unknown target ids are a no-op so a
// probe that outlives a deletion cannot recreate the entry.
func (r *Reconciler) Apply(ctx context.Context, result CheckResult) (*store.MonitorTarget, error) {
	updated, err := r.store.MutateMonitor(ctx, result.TargetID, func(m *store.MonitorTarget) {
		applyResult(m, result)
	})

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logrus.WithField("target", result.TargetID).Debug("Target gone, dropping late result")
			return nil, nil
		}
		// Persistence is best effort: on a write failure the transition
		// is still computed from the last stored state and reported, so
		// metrics and alerts are not lost to a registry hiccup.
		logrus.WithError(err).WithField("target", result.TargetID).Error("Failed to persist check result")
		current, getErr := r.store.GetMonitor(ctx, result.TargetID)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		fallback := *current
		applyResult(&fallback, result)
		updated = &fallback
	}

	if r.metrics != nil {
		r.metrics.RecordCheckResult(updated.Host, updated.Status == store.StatusOnline, result.LatencyMS)
		r.metrics.UpdateTargetStatus(updated.Name, updated.Status)
	}

	logrus.WithFields(logrus.Fields{
		"target":   updated.Name,
		"host":     updated.Host,
		"status":   updated.Status,
		"previous": updated.PreviousStatus,
	}).Debug("Check reconciled")

	if AlertWorthy(updated.PreviousStatus, updated.Status) {
		r.notify(*updated)
	}

	return updated, nil
}

// applyResult rolls the status pair forward and records the outcome of
// one completed check on the target.
func applyResult(m *store.MonitorTarget, result CheckResult) {
	m.PreviousStatus = m.Status
	if result.Success {
		m.Status = store.StatusOnline
		m.LatencyMS = result.LatencyMS
		m.LastError = ""
	} else {
		m.Status = store.StatusOffline
		m.LatencyMS = nil
		m.LastError = result.Reason
	}
	checked := result.CheckedAt
	m.LastChecked = &checked
}

// AlertWorthy reports whether a status transition should raise an alert.
// Only online->offline and offline->online qualify; anything involving
// the initial unknown state, or no change at all, stays quiet.
func AlertWorthy(previous, current store.Status) bool {
	if previous == current {
		return false
	}
	if previous == store.StatusUnknown || current == store.StatusUnknown {
		return false
	}
	return true
}

func (r *Reconciler) notify(target store.MonitorTarget) {
	r.mu.RLock()
	listeners := make([]StatusListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"target":   target.Name,
		"previous": target.PreviousStatus,
		"status":   target.Status,
	}).Info("Status changed")

	for _, listener := range listeners {
		listener(target, target.PreviousStatus)
	}
}
