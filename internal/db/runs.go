package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/movement.report/internal/movement"
)

// ErrNoRuns is returned when a match has no recorded analysis run.
var ErrNoRuns = errors.New("no analysis runs recorded")

// Run is one recorded analysis of a match.
type Run struct {
	RunID           string    `json:"run_id"`
	MatchID         string    `json:"match_id"`
	SprintThreshold float64   `json:"sprint_threshold"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordRun stores the summaries produced by one analysis of matchID and
// returns the new run.
func (db *DB) RecordRun(ctx context.Context, matchID string, threshold float64, summaries []movement.Summary) (*Run, error) {
	run := &Run{
		RunID:           uuid.NewString(),
		MatchID:         matchID,
		SprintThreshold: threshold,
		CreatedAt:       db.clock.Now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, match_id, sprint_threshold, created_unix_nanos) VALUES (?, ?, ?, ?)`,
		run.RunID, run.MatchID, run.SprintThreshold, run.CreatedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entity_summaries (
			run_id, entity_id, samples, duration_secs, total_distance, sprint_distance,
			peak_speed, sprint_event_count, distance_with_possession,
			distance_without_possession, mean_x, mean_y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, s := range summaries {
		var peak sql.NullFloat64
		if s.PeakSpeed != nil {
			peak = sql.NullFloat64{Float64: *s.PeakSpeed, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.RunID, s.EntityID, s.Samples, s.DurationSecs, s.TotalDistance, s.SprintDistance,
			peak, s.SprintEventCount, s.DistanceWithPossession,
			s.DistanceWithoutPossession, s.MeanPosition.X, s.MeanPosition.Y); err != nil {
			return nil, fmt.Errorf("insert summary %s: %w", s.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recent analysis run of matchID.
func (db *DB) LatestRun(ctx context.Context, matchID string) (*Run, error) {
	var (
		run Run
		ts  int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT run_id, match_id, sprint_threshold, created_unix_nanos
		FROM analysis_runs
		WHERE match_id = ?
		ORDER BY created_unix_nanos DESC, rowid DESC
		LIMIT 1`, matchID).Scan(&run.RunID, &run.MatchID, &run.SprintThreshold, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoRuns, matchID)
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, ts).UTC()
	return &run, nil
}

// LatestSummaries returns the most recent run of matchID with its
// summaries, in the order they were recorded.
func (db *DB) LatestSummaries(ctx context.Context, matchID string) (*Run, []movement.Summary, error) {
	run, err := db.LatestRun(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT entity_id, samples, duration_secs, total_distance, sprint_distance,
		       peak_speed, sprint_event_count, distance_with_possession,
		       distance_without_possession, mean_x, mean_y
		FROM entity_summaries
		WHERE run_id = ?
		ORDER BY rowid`, run.RunID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var out []movement.Summary
	for rows.Next() {
		s := movement.Summary{SprintThreshold: run.SprintThreshold}
		var peak sql.NullFloat64
		if err := rows.Scan(&s.EntityID, &s.Samples, &s.DurationSecs, &s.TotalDistance, &s.SprintDistance,
			&peak, &s.SprintEventCount, &s.DistanceWithPossession,
			&s.DistanceWithoutPossession, &s.MeanPosition.X, &s.MeanPosition.Y); err != nil {
			return nil, nil, err
		}
		if peak.Valid {
			v := peak.Float64
			s.PeakSpeed = &v
		}
		out = append(out, s)
	}
	return run, out, rows.Err()
}
