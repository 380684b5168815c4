package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSlide inserts one (run, protocol, slide) pass in its initial phase.
func (s *Store) CreateSlide(ctx context.Context, runID string, slideID int64, protocol string, final bool) (*Slide, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO slides (
            run_id, slide_id, protocol, final, phase, quality, loop_count,
            failure_reason, report_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		slideID,
		protocol,
		boolToInt(final),
		PhasePending,
		QualityUnknown,
		0,
		nil,
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert slide: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetSlide(ctx, id)
}

// UpdateSlide persists changes to an existing slide pass.
func (s *Store) UpdateSlide(ctx context.Context, slide *Slide) error {
	if slide == nil {
		return errors.New("slide is nil")
	}
	slide.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE slides
         SET phase = ?, quality = ?, loop_count = ?, failure_reason = ?,
             report_json = ?, updated_at = ?
         WHERE id = ?`,
		slide.Phase,
		slide.Quality,
		slide.LoopCount,
		nullableString(slide.FailureReason),
		nullableString(slide.ReportJSON),
		slide.UpdatedAt.Format(time.RFC3339Nano),
		slide.ID,
	); err != nil {
		return fmt.Errorf("update slide: %w", err)
	}
	return nil
}

// GetSlide fetches a slide pass by identifier.
func (s *Store) GetSlide(ctx context.Context, id int64) (*Slide, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM slides WHERE id = ?`, id)
	slide, err := scanSlide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slide: %w", err)
	}
	return slide, nil
}

// FindSlide returns the pass for one slide under one protocol of a run.
func (s *Store) FindSlide(ctx context.Context, runID, protocol string, slideID int64) (*Slide, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+slideColumns+` FROM slides WHERE run_id = ? AND protocol = ? AND slide_id = ?`,
		runID,
		protocol,
		slideID,
	)
	slide, err := scanSlide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find slide: %w", err)
	}
	return slide, nil
}

// SlidesForRun returns all slide passes of a run in creation order.
func (s *Store) SlidesForRun(ctx context.Context, runID string) ([]*Slide, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+slideColumns+` FROM slides WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()

	var slides []*Slide
	for rows.Next() {
		slide, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, rows.Err()
}

// SlidesByPhase returns slide passes of a run matching a phase set.
func (s *Store) SlidesByPhase(ctx context.Context, runID string, phases ...Phase) ([]*Slide, error) {
	if len(phases) == 0 {
		return s.SlidesForRun(ctx, runID)
	}
	placeholders := makePlaceholders(len(phases))
	args := make([]any, 0, len(phases)+1)
	args = append(args, runID)
	for _, phase := range phases {
		args = append(args, phase)
	}

	query := `SELECT ` + slideColumns + ` FROM slides WHERE run_id = ? AND phase IN (` + placeholders + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slides by phase: %w", err)
	}
	defer rows.Close()

	var slides []*Slide
	for rows.Next() {
		slide, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, rows.Err()
}

// SlideStats returns a count of a run's slide passes grouped by phase.
func (s *Store) SlideStats(ctx context.Context, runID string) (map[Phase]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phase, COUNT(1) FROM slides WHERE run_id = ? GROUP BY phase`, runID)
	if err != nil {
		return nil, fmt.Errorf("slide stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Phase]int)
	for rows.Next() {
		var phase Phase
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, err
		}
		stats[phase] = count
	}
	return stats, rows.Err()
}

const slideColumns = "id, run_id, slide_id, protocol, final, phase, quality, loop_count, failure_reason, report_json, created_at, updated_at"

func scanSlide(scanner interface{ Scan(dest ...any) error }) (*Slide, error) {
	var (
		id            int64
		runID         string
		slideID       int64
		protocol      string
		final         sql.NullInt64
		phaseStr      string
		qualityStr    string
		loopCount     int
		failureReason sql.NullString
		reportJSON    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&slideID,
		&protocol,
		&final,
		&phaseStr,
		&qualityStr,
		&loopCount,
		&failureReason,
		&reportJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	slide := &Slide{
		ID:            id,
		RunID:         runID,
		SlideID:       slideID,
		Protocol:      protocol,
		Phase:         Phase(phaseStr),
		Quality:       Quality(qualityStr),
		LoopCount:     loopCount,
		FailureReason: failureReason.String,
		ReportJSON:    reportJSON.String,
	}
	if final.Valid {
		slide.Final = final.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		slide.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		slide.UpdatedAt = updated
	}
	return slide, nil
}
