package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"histoflow/internal/api"
	"histoflow/internal/config"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/services"
	"histoflow/internal/workflow"
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	ledgerSvc *api.LedgerService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	svc := api.NewLedgerService(d.store)
	mux := http.NewServeMux()
	srv := &apiServer{
		bind:      bind,
		logger:    logger,
		daemon:    d,
		ledgerSvc: svc,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/run", authMiddleware(token, srv.handleRun))
	mux.HandleFunc("/api/slides", authMiddleware(token, srv.handleSlides))
	mux.HandleFunc("/api/events", authMiddleware(token, srv.handleEvents))
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/metrics", srv.handleMetrics)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.LedgerDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.ledgerSvc == nil {
			s.writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		run, err := s.ledgerSvc.CurrentRun(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run == nil {
			s.writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		s.writeJSON(w, http.StatusOK, api.RunResponse{Run: *run})
	case http.MethodPost:
		var req api.StartRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		run, err := s.daemon.SubmitRun(r.Context(), req.SlideIDs, workflow.StartOverrides{
			Protocols:    req.Protocols,
			MaxWashLoops: req.MaxWashLoops,
			PickupSlot:   req.PickupSlot,
			HandlerSlot:  req.HandlerSlot,
			DropoffSlot:  req.DropoffSlot,
		})
		if err != nil {
			s.writeError(w, errorStatus(err), err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, api.RunResponse{Run: api.FromRun(run)})
	case http.MethodDelete:
		runID, err := s.daemon.AbortRun(r.Context())
		if err != nil {
			s.writeError(w, errorStatus(err), err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.AbortRunResponse{Aborted: true, RunID: runID})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSlides(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.ledgerSvc == nil {
		s.writeJSON(w, http.StatusOK, api.SlideListResponse{Slides: nil})
		return
	}
	query := r.URL.Query()
	runID := strings.TrimSpace(query.Get("run"))
	var phases []ledger.Phase
	for _, value := range query["phase"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		parsed, ok := ledger.ParsePhase(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown phase %q", trimmed))
			return
		}
		phases = append(phases, parsed)
	}

	slides, err := s.ledgerSvc.Slides(r.Context(), runID, phases...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SlideListResponse{Slides: slides})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.ledgerSvc == nil {
		s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: nil, Next: 0})
		return
	}
	query := r.URL.Query()
	runID := strings.TrimSpace(query.Get("run"))
	after := int64(0)
	if raw := strings.TrimSpace(query.Get("after")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		after = parsed
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}

	events, next, err := s.ledgerSvc.Events(r.Context(), runID, after, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: events, Next: next})
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.daemon.DatabaseHealth(r.Context())
	if err != nil || health.Error != "" {
		detail := health.Error
		if err != nil {
			detail = err.Error()
		}
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": detail})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	handler := s.daemon.metricsHandler
	if handler == nil {
		s.writeError(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	handler.ServeHTTP(w, r)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
