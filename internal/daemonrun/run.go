package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"histoflow/internal/config"
	"histoflow/internal/daemon"
	"histoflow/internal/events"
	"histoflow/internal/events/redisstream"
	"histoflow/internal/ipc"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/metrics"
	"histoflow/internal/notifications"
	"histoflow/internal/preflight"
	"histoflow/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the histoflow daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := opts.LogLevel
	if opts.Diagnostic {
		level = "debug"
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "histoflow.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		)
	}

	logPreflight(logger, preflight.RunAll(signalCtx, cfg))

	pidPath := filepath.Join(cfg.Paths.DataDir, "histoflow.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := ledger.Open(cfg)
	if err != nil {
		logger.Error("open ledger store", logging.Error(err))
		return err
	}
	defer store.Close()

	collector := metrics.NewCollector()
	sinks := []events.Sink{collector.Sink()}
	if mirror := redisstream.New(cfg); mirror != nil {
		pingCtx, pingCancel := context.WithTimeout(signalCtx, 5*time.Second)
		if pingErr := mirror.Ping(pingCtx); pingErr != nil {
			logger.Warn("redis event mirror unreachable",
				logging.Error(pingErr),
				logging.String(logging.FieldEventType, "redis_mirror_unreachable"),
				logging.String("redis_addr", cfg.Events.RedisAddr),
				logging.String(logging.FieldErrorHint, "check events.redis_addr or unset it to disable the mirror"),
			)
		} else {
			logger.Info("redis event mirror connected",
				logging.String(logging.FieldEventType, "redis_mirror_connected"),
				logging.String("redis_addr", cfg.Events.RedisAddr),
				logging.String("stream", cfg.Events.RedisStream),
			)
		}
		pingCancel()
		defer mirror.Close()
		sinks = append(sinks, mirror)
	}

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithOptions(cfg, store, logger, notifier,
		workflow.WithEventSinks(sinks...))

	d, err := daemon.New(cfg, store, logger, workflowManager, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()
	d.AttachMetricsHandler(collector.Handler())

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and ledger database access"),
			logging.String("impact", "daemon will not accept run commands"),
		)
	}

	<-signalCtx.Done()
	logger.Info("histoflow daemon shutting down")
	return nil
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String(logging.FieldEventType, "preflight_check"),
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_check_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "resolve before starting a run"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
