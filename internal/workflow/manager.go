package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"histoflow/internal/config"
	"histoflow/internal/devices"
	"histoflow/internal/devices/sim"
	"histoflow/internal/events"
	"histoflow/internal/ledger"
	"histoflow/internal/notifications"
)

// BenchFactory builds the device bench for one run together with its health
// checker. Every run gets a fresh bench so device state never leaks between
// runs.
type BenchFactory func(sink events.Sink) (devices.Bench, devices.HealthChecker)

// Manager supervises run execution. It owns the single active run, its
// heartbeat loop, and the notifications that bracket it.
type Manager struct {
	cfg      *config.Config
	store    *ledger.Store
	logger   *slog.Logger
	notifier notifications.Service
	benches  BenchFactory
	sinks    []events.Sink

	heartbeat *HeartbeatMonitor

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	activeID   string
	runStart   time.Time
	lastErr    error
	lastResult *RunResult
	health     devices.HealthChecker
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	benches BenchFactory
	sinks   []events.Sink
}

// WithBenchFactory overrides how the per-run bench is built (used in tests).
func WithBenchFactory(factory BenchFactory) ManagerOption {
	return func(o *managerOptions) {
		o.benches = factory
	}
}

// WithEventSinks attaches extra sinks to every run's event fan-out.
func WithEventSinks(sinks ...events.Sink) ManagerOption {
	return func(o *managerOptions) {
		o.sinks = append(o.sinks, sinks...)
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *ledger.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifier)
}

// NewManagerWithOptions constructs a workflow manager with full configuration.
func NewManagerWithOptions(cfg *config.Config, store *ledger.Store, logger *slog.Logger, notifier notifications.Service, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	benches := options.benches
	if benches == nil {
		benches = func(sink events.Sink) (devices.Bench, devices.HealthChecker) {
			rig := sim.NewRigFromConfig(cfg, sink)
			return rig.Bench(), rig
		}
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifier,
		benches:  benches,
		sinks:    options.sinks,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}
