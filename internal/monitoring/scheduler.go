// internal/monitoring/scheduler.go - per-target periodic check scheduling
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hostpulse/internal/store"
)

// DefaultInterval spaces checks when a target carries no usable interval.
const DefaultInterval = 30 * time.Second

// Scheduler owns one cancellable schedule per enabled target. Each
// schedule ticks on its own goroutine, so a hung probe for one target
// never delays the others. Starting a schedule for an id that already
// has one replaces it.
type Scheduler struct {
	store      store.Store
	prober     Prober
	reconciler *Reconciler

	mu        sync.Mutex
	schedules map[string]*schedule
	inflight  map[string]bool
}

type schedule struct {
	targetID string
	cancel   context.CancelFunc
}

func NewScheduler(st store.Store, prober Prober, reconciler *Reconciler) *Scheduler {
	return &Scheduler{
		store:      st,
		prober:     prober,
		reconciler: reconciler,
		schedules:  make(map[string]*schedule),
		inflight:   make(map[string]bool),
	}
}

// Start arms a periodic schedule for the target: one immediate check,
// then one check every interval. Any prior schedule for the same id is
// cancelled first. ctx bounds the whole subsystem lifetime; in-flight
// probes run against it rather than the per-schedule context, so
// stopping a target does not abort a probe already underway.
func (s *Scheduler) Start(ctx context.Context, targetID string) error {
	target, err := s.store.GetMonitor(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to load target %s: %w", targetID, err)
	}
	if target.Host == "" {
		return fmt.Errorf("target %s has no host configured", targetID)
	}
	if !target.Enabled {
		return fmt.Errorf("target %s is disabled", targetID)
	}

	s.mu.Lock()
	if old, ok := s.schedules[targetID]; ok {
		old.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	sched := &schedule{targetID: targetID, cancel: cancel}
	s.schedules[targetID] = sched
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"target":   target.Name,
		"host":     target.Host,
		"interval": target.Interval(),
	}).Info("Scheduled target")

	go s.run(ctx, loopCtx, sched, target.Interval())
	return nil
}

// StartAll re-arms schedules for every enabled target in the registry,
// global and grouped. Used at subsystem launch.
func (s *Scheduler) StartAll(ctx context.Context) error {
	targets, err := s.store.GetAllMonitors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	started := 0
	for _, target := range targets {
		if !target.Enabled || target.Host == "" {
			continue
		}
		if err := s.Start(ctx, target.ID); err != nil {
			logrus.WithError(err).WithField("target", target.Name).Warn("Failed to schedule target")
			continue
		}
		started++
	}

	logrus.WithField("count", started).Info("Re-armed target schedules")
	return nil
}

// Stop cancels the schedule for the id if one exists, no-op otherwise.
func (s *Scheduler) Stop(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sched, ok := s.schedules[targetID]; ok {
		sched.cancel()
		delete(s.schedules, targetID)
		logrus.WithField("target", targetID).Debug("Stopped schedule")
	}
}

// StopAll cancels every active schedule.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sched := range s.schedules {
		sched.cancel()
		delete(s.schedules, id)
	}
	logrus.Info("Stopped all schedules")
}

// Running reports whether the target currently has an active schedule.
func (s *Scheduler) Running(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.schedules[targetID]
	return ok
}

// CheckNow runs a single out-of-band check using the target's current
// stored configuration and applies the result.
func (s *Scheduler) CheckNow(ctx context.Context, targetID string) (*store.MonitorTarget, error) {
	target, err := s.store.GetMonitor(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target %s: %w", targetID, err)
	}

	result := s.prober.Probe(ctx, target.Host, target.Port)
	result.TargetID = target.ID
	return s.reconciler.Apply(ctx, result)
}

func (s *Scheduler) run(probeCtx, loopCtx context.Context, sched *schedule, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.fire(probeCtx, loopCtx, sched)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			s.remove(sched)
			return
		case <-ticker.C:
			// Each tick re-reads the stored target so host and interval
			// edits take effect without restarting the schedule.
			target, err := s.store.GetMonitor(loopCtx, sched.targetID)
			if err != nil {
				s.remove(sched)
				return
			}
			if !target.Enabled {
				s.remove(sched)
				return
			}
			if d := target.Interval(); d > 0 && d != interval {
				interval = d
				ticker.Reset(d)
			}
			s.fire(probeCtx, loopCtx, sched)
		}
	}
}

// fire launches one check unless a probe for this target is still in
// flight, in which case the tick is skipped rather than stacking probes.
// The guard is keyed by target id, so a schedule replaced mid-probe
// still cannot run two concurrent probes for the same target.
func (s *Scheduler) fire(probeCtx, loopCtx context.Context, sched *schedule) {
	if loopCtx.Err() != nil {
		return
	}
	if !s.tryAcquire(sched.targetID) {
		logrus.WithField("target", sched.targetID).Debug("Probe still in flight, skipping tick")
		return
	}

	go func() {
		defer s.release(sched.targetID)

		target, err := s.store.GetMonitor(probeCtx, sched.targetID)
		if err != nil {
			return
		}

		result := s.prober.Probe(probeCtx, target.Host, target.Port)
		result.TargetID = target.ID

		if _, err := s.reconciler.Apply(probeCtx, result); err != nil {
			logrus.WithError(err).WithField("target", target.Name).Debug("Reconcile failed")
		}
	}()
}

func (s *Scheduler) tryAcquire(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[targetID] {
		return false
	}
	s.inflight[targetID] = true
	return true
}

func (s *Scheduler) release(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, targetID)
}

// remove drops the schedule only if it is still the active one for its
// id; a concurrent restart may have replaced it already.
func (s *Scheduler) remove(sched *schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.schedules[sched.targetID]; ok && current == sched {
		current.cancel()
		delete(s.schedules, sched.targetID)
	}
}
