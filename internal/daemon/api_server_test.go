package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"histoflow/internal/api"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/testsupport"
	"histoflow/internal/workflow"
)

type ledgerStoreStub struct {
	run    *ledger.Run
	slides []*ledger.Slide
	events []*ledger.Event
}

func (s *ledgerStoreStub) CurrentRun(context.Context) (*ledger.Run, error) {
	return s.run, nil
}

func (s *ledgerStoreStub) GetRun(_ context.Context, id string) (*ledger.Run, error) {
	if s.run != nil && s.run.ID == id {
		return s.run, nil
	}
	return nil, nil
}

func (s *ledgerStoreStub) SlidesForRun(context.Context, string) ([]*ledger.Slide, error) {
	return s.slides, nil
}

func (s *ledgerStoreStub) SlidesByPhase(_ context.Context, _ string, phases ...ledger.Phase) ([]*ledger.Slide, error) {
	matched := make([]*ledger.Slide, 0, len(s.slides))
	for _, slide := range s.slides {
		for _, phase := range phases {
			if slide.Phase == phase {
				matched = append(matched, slide)
			}
		}
	}
	return matched, nil
}

func (s *ledgerStoreStub) Events(_ context.Context, _ string, afterSeq int64, limit int) ([]*ledger.Event, error) {
	matched := make([]*ledger.Event, 0, len(s.events))
	for _, event := range s.events {
		if event.Seq > afterSeq {
			matched = append(matched, event)
		}
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (s *ledgerStoreStub) TailEvents(_ context.Context, _ string, limit int) ([]*ledger.Event, error) {
	if limit <= 0 || limit >= len(s.events) {
		return s.events, nil
	}
	return s.events[len(s.events)-limit:], nil
}

func TestAPIServerHandleSlides(t *testing.T) {
	stub := &ledgerStoreStub{
		run: &ledger.Run{ID: "run-1", Status: ledger.RunRunning},
		slides: []*ledger.Slide{
			{ID: 1, RunID: "run-1", SlideID: 7, Protocol: "Receptor42", Phase: ledger.PhaseAccepted, Quality: ledger.QualityOk},
		},
	}
	srv := &apiServer{ledgerSvc: api.NewLedgerService(stub)}

	req := httptest.NewRequest(http.MethodGet, "/api/slides", nil)
	w := httptest.NewRecorder()
	srv.handleSlides(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.SlideListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Slides) != 1 {
		t.Fatalf("expected 1 slide, got %d", len(resp.Slides))
	}
	if resp.Slides[0].SlideID != 7 || resp.Slides[0].Phase != "accepted" {
		t.Fatalf("unexpected slide: %+v", resp.Slides[0])
	}
}

func TestAPIServerHandleSlidesRejectsUnknownPhase(t *testing.T) {
	srv := &apiServer{ledgerSvc: api.NewLedgerService(&ledgerStoreStub{})}

	req := httptest.NewRequest(http.MethodGet, "/api/slides?phase=bogus", nil)
	w := httptest.NewRecorder()
	srv.handleSlides(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerHandleEvents(t *testing.T) {
	stub := &ledgerStoreStub{
		run: &ledger.Run{ID: "run-1"},
		events: []*ledger.Event{
			{Seq: 1, RunID: "run-1", Name: "histoflow.run_started"},
			{Seq: 2, RunID: "run-1", Name: "robot.move"},
		},
	}
	srv := &apiServer{ledgerSvc: api.NewLedgerService(stub)}

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=5", nil)
	w := httptest.NewRecorder()
	srv.handleEvents(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.EventListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 2 || resp.Next != 2 {
		t.Fatalf("unexpected events page: %d events cursor %d", len(resp.Events), resp.Next)
	}
}

func TestAPIServerHandleEventsRejectsBadCursor(t *testing.T) {
	srv := &apiServer{ledgerSvc: api.NewLedgerService(&ledgerStoreStub{})}

	req := httptest.NewRequest(http.MethodGet, "/api/events?after=oops", nil)
	w := httptest.NewRecorder()
	srv.handleEvents(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerHandleRunAppliesOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPassRate(1))
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, mgr, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	body := strings.NewReader(`{"slideIds":[9],"protocols":["Receptor42"],"maxWashLoops":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run", body)
	w := httptest.NewRecorder()
	d.api.handleRun(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Run.MaxWashLoops != 0 {
		t.Fatalf("expected wash loop override in run, got %d", resp.Run.MaxWashLoops)
	}
	if len(resp.Run.Protocols) != 1 || resp.Run.Protocols[0] != "Receptor42" {
		t.Fatalf("expected protocol override in run, got %v", resp.Run.Protocols)
	}
	mgr.Wait()

	req = httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"slideIds":[0]}`))
	w = httptest.NewRecorder()
	d.api.handleRun(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid plan, got %d", w.Code)
	}
}

func TestAPIServerHandleMetricsWithoutCollector(t *testing.T) {
	srv := &apiServer{daemon: &Daemon{}}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.handleMetrics(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	var called bool
	next := func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}

	handler := authMiddleware("secret", next)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 without token, got %d (called=%v)", w.Code, called)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 with wrong token, got %d (called=%v)", w.Code, called)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 with valid token, got %d (called=%v)", w.Code, called)
	}

	called = false
	passthrough := authMiddleware("", next)
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	passthrough(w, req)
	if w.Code != http.StatusOK || !called {
		t.Fatalf("expected passthrough without configured token, got %d (called=%v)", w.Code, called)
	}
}
