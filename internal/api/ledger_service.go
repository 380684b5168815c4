package api

import (
	"context"

	"histoflow/internal/ledger"
)

// LedgerReader abstracts ledger persistence interactions needed for API queries.
type LedgerReader interface {
	CurrentRun(ctx context.Context) (*ledger.Run, error)
	GetRun(ctx context.Context, id string) (*ledger.Run, error)
	SlidesForRun(ctx context.Context, runID string) ([]*ledger.Slide, error)
	SlidesByPhase(ctx context.Context, runID string, phases ...ledger.Phase) ([]*ledger.Slide, error)
	Events(ctx context.Context, runID string, afterSeq int64, limit int) ([]*ledger.Event, error)
	TailEvents(ctx context.Context, runID string, limit int) ([]*ledger.Event, error)
}

// LedgerService exposes read-only ledger operations returning API DTOs.
type LedgerService struct {
	store LedgerReader
}

// NewLedgerService constructs a LedgerService around the provided reader.
func NewLedgerService(store LedgerReader) *LedgerService {
	if store == nil {
		return nil
	}
	return &LedgerService{store: store}
}

// CurrentRun returns the most recent run, or nil when the ledger is empty.
func (s *LedgerService) CurrentRun(ctx context.Context) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.CurrentRun(ctx)
	if err != nil || run == nil {
		return nil, err
	}
	dto := FromRun(run)
	return &dto, nil
}

// DescribeRun returns a single run by id, or nil when it does not exist.
func (s *LedgerService) DescribeRun(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.GetRun(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}
	dto := FromRun(run)
	return &dto, nil
}

// Slides returns slide passes for a run, optionally filtered by phase. An
// empty runID resolves to the current run.
func (s *LedgerService) Slides(ctx context.Context, runID string, phases ...ledger.Phase) ([]Slide, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	resolved, err := s.resolveRunID(ctx, runID)
	if err != nil || resolved == "" {
		return nil, err
	}
	var records []*ledger.Slide
	if len(phases) == 0 {
		records, err = s.store.SlidesForRun(ctx, resolved)
	} else {
		records, err = s.store.SlidesByPhase(ctx, resolved, phases...)
	}
	if err != nil {
		return nil, err
	}
	return FromSlides(records), nil
}

// Events returns events after the given sequence number together with the
// cursor for the next read. A negative cursor tails the newest events.
func (s *LedgerService) Events(ctx context.Context, runID string, after int64, limit int) ([]Event, int64, error) {
	if s == nil || s.store == nil {
		return nil, after, nil
	}
	resolved, err := s.resolveRunID(ctx, runID)
	if err != nil || resolved == "" {
		return nil, after, err
	}
	var records []*ledger.Event
	if after < 0 {
		records, err = s.store.TailEvents(ctx, resolved, limit)
	} else {
		records, err = s.store.Events(ctx, resolved, after, limit)
	}
	if err != nil {
		return nil, after, err
	}
	next := after
	if next < 0 {
		next = 0
	}
	if n := len(records); n > 0 {
		next = records[n-1].Seq
	}
	return FromEvents(records), next, nil
}

func (s *LedgerService) resolveRunID(ctx context.Context, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	run, err := s.store.CurrentRun(ctx)
	if err != nil || run == nil {
		return "", err
	}
	return run.ID, nil
}
