// internal/monitoring/engine.go
package monitoring

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"hostpulse/internal/config"
	"hostpulse/internal/metrics"
	"hostpulse/internal/notifications"
	"hostpulse/internal/store"
)

// Engine wires the prober, scheduler and reconciler together and owns
// the monitoring lifecycle.
type Engine struct {
	config     *config.Config
	store      store.Store
	metrics    *metrics.Collector
	prober     Prober
	reconciler *Reconciler
	scheduler  *Scheduler
	notifier   *notifications.PushoverClient

	mu      sync.Mutex
	running bool
	runCtx  context.Context
}

func NewEngine(cfg *config.Config, st store.Store, collector *metrics.Collector) *Engine {
	engine := &Engine{
		config:  cfg,
		store:   st,
		metrics: collector,
		prober:  NewTCPProber(cfg.Monitoring.ProbeTimeout),
	}

	engine.reconciler = NewReconciler(st, collector)
	engine.scheduler = NewScheduler(st, engine.prober, engine.reconciler)

	engine.notifier = notifications.NewPushoverClient(&cfg.Notifications.Pushover)
	if engine.notifier.Authorization() == notifications.AuthAuthorized {
		engine.reconciler.Subscribe(func(target store.MonitorTarget, previous store.Status) {
			engine.notifier.NotifyStatusChange(context.Background(), target, previous)
		})
		logrus.Info("Pushover notifications enabled")
	}

	return engine
}

// Start re-arms schedules for every enabled target in the registry.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.runCtx = ctx
	e.mu.Unlock()

	logrus.Info("Starting monitoring engine")
	return e.scheduler.StartAll(ctx)
}

// lifetime returns the context schedules run against. Schedules armed
// through the API must outlive the request that created them, so they
// are bound to the engine's context rather than the caller's.
func (e *Engine) lifetime() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runCtx != nil {
		return e.runCtx
	}
	return context.Background()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	logrus.Info("Stopping monitoring engine")
	e.scheduler.StopAll()
	e.running = false
}

// StartTarget (re)arms the schedule for a single target without
// disturbing the others.
func (e *Engine) StartTarget(targetID string) error {
	return e.scheduler.Start(e.lifetime(), targetID)
}

// StopTarget cancels the target's schedule if one exists.
func (e *Engine) StopTarget(targetID string) {
	e.scheduler.Stop(targetID)
}

// TargetScheduled reports whether the target has an active schedule.
func (e *Engine) TargetScheduled(targetID string) bool {
	return e.scheduler.Running(targetID)
}

// CheckNow forces one immediate check outside the periodic cadence.
func (e *Engine) CheckNow(ctx context.Context, targetID string) (*store.MonitorTarget, error) {
	return e.scheduler.CheckNow(ctx, targetID)
}

// OnStatusChange registers a listener for alert-worthy transitions.
func (e *Engine) OnStatusChange(listener StatusListener) {
	e.reconciler.Subscribe(listener)
}

// NotificationAuthorization exposes the notifier's capability state.
func (e *Engine) NotificationAuthorization() notifications.AuthorizationState {
	return e.notifier.Authorization()
}
