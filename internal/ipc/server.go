package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"histoflow/internal/api"
	"histoflow/internal/daemon"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/logs"
	"histoflow/internal/workflow"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Histoflow", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun histoflow stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.LedgerDBPath = status.LedgerDBPath
	resp.LockPath = status.LockFilePath
	resp.PID = status.PID
	resp.SlideStats = api.MergeSlideStats(status.Workflow.SlideStats)
	resp.LastError = status.Workflow.LastError
	if status.Workflow.Run != nil {
		run := api.FromRun(status.Workflow.Run)
		resp.Run = &run
	}
	resp.LastResult = api.FromRunResult(status.Workflow.LastResult)
	resp.Devices = api.DeviceHealthSlice(status.Workflow.Devices)
	return nil
}

func (s *service) RunStart(req RunStartRequest, resp *RunStartResponse) error {
	s.log().Debug("run start requested",
		logging.Int("slide_count", len(req.SlideIDs)),
		logging.Int("protocol_count", len(req.Protocols)))
	run, err := s.daemon.SubmitRun(s.ctx, req.SlideIDs, workflow.StartOverrides{
		Protocols:    req.Protocols,
		MaxWashLoops: req.MaxWashLoops,
		PickupSlot:   req.PickupSlot,
		HandlerSlot:  req.HandlerSlot,
		DropoffSlot:  req.DropoffSlot,
	})
	if err != nil {
		return err
	}
	resp.Run = api.FromRun(run)
	resp.Message = "run started"
	s.log().Info("run started via IPC",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String(logging.FieldRunID, run.ID),
		logging.Int("slide_count", len(run.SlideIDs)))
	return nil
}

func (s *service) RunAbort(_ RunAbortRequest, resp *RunAbortResponse) error {
	s.log().Debug("run abort requested")
	runID, err := s.daemon.AbortRun(s.ctx)
	if err != nil {
		return err
	}
	resp.Aborted = true
	resp.RunID = runID
	resp.Message = "abort requested"
	s.log().Info("run aborted via IPC",
		logging.String(logging.FieldEventType, "run_abort"),
		logging.String(logging.FieldRunID, runID))
	return nil
}

func (s *service) RunDescribe(req RunDescribeRequest, resp *RunDescribeResponse) error {
	run, slides, err := s.daemon.DescribeRun(s.ctx, req.RunID)
	if err != nil {
		return err
	}
	if run == nil {
		if req.RunID == "" {
			return errors.New("no runs recorded")
		}
		return fmt.Errorf("run %s not found", req.RunID)
	}
	resp.Run = *run
	resp.Slides = slides
	return nil
}

func (s *service) SlideList(req SlideListRequest, resp *SlideListResponse) error {
	phases := make([]ledger.Phase, 0, len(req.Phases))
	for _, raw := range req.Phases {
		parsed, ok := ledger.ParsePhase(raw)
		if !ok {
			continue
		}
		phases = append(phases, parsed)
	}
	slides, err := s.daemon.Slides(s.ctx, req.RunID, phases...)
	if err != nil {
		return err
	}
	resp.Slides = slides
	return nil
}

func (s *service) EventTail(req EventTailRequest, resp *EventTailResponse) error {
	events, next, err := s.daemon.Events(s.ctx, req.RunID, req.After, req.Limit)
	if err != nil {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TablesPresent = append(resp.TablesPresent, health.TablesPresent...)
	resp.MissingTables = append(resp.MissingTables, health.MissingTables...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalEvents = health.TotalEvents
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
