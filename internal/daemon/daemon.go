package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"histoflow/internal/api"
	"histoflow/internal/config"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/notifications"
	"histoflow/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	workflow *workflow.Manager
	queries  *api.LedgerService
	logPath  string

	lockPath string
	lock     *flock.Flock

	api            *apiServer
	metricsHandler http.Handler

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	LedgerDBPath string
	LockFilePath string
	PID          int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger, wf *workflow.Manager, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		queries:  api.NewLedgerService(store),
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// AttachMetricsHandler mounts a metrics endpoint handler on the HTTP API.
func (d *Daemon) AttachMetricsHandler(handler http.Handler) {
	d.metricsHandler = handler
}

// Start reconciles the ledger, launches maintenance, and acquires the
// daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another histoflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Startup(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("reconcile ledger: %w", err)
	}
	go d.workflow.RunMaintenance(d.ctx)

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return fmt.Errorf("start api server: %w", err)
		}
	}

	d.running.Store(true)
	d.logger.Info("histoflow daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("histoflow daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartRun launches a new slide processing run.
func (d *Daemon) StartRun(ctx context.Context, slideIDs []int64, protocols []string) (*ledger.Run, error) {
	return d.SubmitRun(ctx, slideIDs, workflow.StartOverrides{Protocols: protocols})
}

// SubmitRun launches a run with per-run plan overrides.
func (d *Daemon) SubmitRun(ctx context.Context, slideIDs []int64, overrides workflow.StartOverrides) (*ledger.Run, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon not running")
	}
	return d.workflow.Submit(ctx, slideIDs, overrides)
}

// AbortRun cancels the active run.
func (d *Daemon) AbortRun(ctx context.Context) (string, error) {
	return d.workflow.AbortRun(ctx)
}

// Slides returns slide passes for a run, optionally filtered by phase. An
// empty run id resolves to the current run.
func (d *Daemon) Slides(ctx context.Context, runID string, phases ...ledger.Phase) ([]api.Slide, error) {
	if d.queries == nil {
		return nil, errors.New("ledger unavailable")
	}
	return d.queries.Slides(ctx, runID, phases...)
}

// Events returns ledger events after the given cursor together with the
// cursor for the next read.
func (d *Daemon) Events(ctx context.Context, runID string, after int64, limit int) ([]api.Event, int64, error) {
	if d.queries == nil {
		return nil, after, errors.New("ledger unavailable")
	}
	return d.queries.Events(ctx, runID, after, limit)
}

// DescribeRun returns a run and its slide passes. An empty id resolves to
// the most recent run; a missing run yields a nil run and no error.
func (d *Daemon) DescribeRun(ctx context.Context, id string) (*api.Run, []api.Slide, error) {
	if d.queries == nil {
		return nil, nil, errors.New("ledger unavailable")
	}
	var (
		run *api.Run
		err error
	)
	if strings.TrimSpace(id) == "" {
		run, err = d.queries.CurrentRun(ctx)
	} else {
		run, err = d.queries.DescribeRun(ctx, id)
	}
	if err != nil || run == nil {
		return nil, nil, err
	}
	slides, err := d.queries.Slides(ctx, run.ID)
	if err != nil {
		return run, nil, err
	}
	return run, slides, nil
}

// DatabaseHealth returns detailed ledger database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (ledger.DatabaseHealth, error) {
	if d.store == nil {
		return ledger.DatabaseHealth{}, errors.New("ledger store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		Workflow:     summary,
		LedgerDBPath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		PID:          os.Getpid(),
	}
}
