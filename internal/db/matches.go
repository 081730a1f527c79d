package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/timeutil"
	"github.com/banshee-data/movement.report/internal/tracking"
)

// ErrMatchNotFound is returned when a match id has not been imported.
var ErrMatchNotFound = errors.New("match not found")

// MatchInfo describes one imported match.
type MatchInfo struct {
	MatchID     string    `json:"match_id"`
	Source      string    `json:"source"`
	SampleCount int       `json:"sample_count"`
	EntityCount int       `json:"entity_count"`
	ImportedAt  time.Time `json:"imported_at"`
}

// ImportMatch stores match, replacing any earlier import with the same id
// (and the analysis runs recorded against it). Samples keep their input
// order.
func (db *DB) ImportMatch(ctx context.Context, match *tracking.Match, source string) error {
	if match.ID == "" {
		return fmt.Errorf("import match: empty match id")
	}
	start := db.clock.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE match_id = ?`, match.ID); err != nil {
		return fmt.Errorf("clear previous import: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (match_id, source, sample_count, imported_unix_nanos) VALUES (?, ?, ?, ?)`,
		match.ID, source, len(match.Samples), start.UnixNano()); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	if match.Roster != nil {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO entities (match_id, entity_id, ordinal, short_name, number, team, role) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range match.Roster.Entities() {
			if _, err := stmt.ExecContext(ctx, match.ID, e.ID, i, e.ShortName, e.Number, e.Team, e.Role); err != nil {
				return fmt.Errorf("insert entity %s: %w", e.ID, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (match_id, seq, entity_id, ts_unix_nanos, x, y, possession) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, s := range match.Samples {
		if _, err := stmt.ExecContext(ctx, match.ID, i, s.EntityID, s.Timestamp.UnixNano(), s.X, s.Y, s.Possession); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	monitoring.Logf("db: imported match %s (%d samples) in %v", match.ID, len(match.Samples), timeutil.Elapsed(db.clock, start))
	return nil
}

// LoadMatch reads an imported match back. The samples come back in the
// order they were imported.
func (db *DB) LoadMatch(ctx context.Context, matchID string) (*tracking.Match, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT sample_count FROM matches WHERE match_id = ?`, matchID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, err
	}

	m := &tracking.Match{ID: matchID, Roster: tracking.NewRoster(), Samples: make([]tracking.Sample, 0, n)}

	rows, err := db.QueryContext(ctx,
		`SELECT entity_id, short_name, number, team, role FROM entities WHERE match_id = ? ORDER BY ordinal`, matchID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var e tracking.Entity
		if err := rows.Scan(&e.ID, &e.ShortName, &e.Number, &e.Team, &e.Role); err != nil {
			rows.Close()
			return nil, err
		}
		m.Roster.Add(e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT entity_id, ts_unix_nanos, x, y, possession FROM samples WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s  tracking.Sample
			ts int64
		)
		if err := rows.Scan(&s.EntityID, &ts, &s.X, &s.Y, &s.Possession); err != nil {
			return nil, err
		}
		s.Timestamp = time.Unix(0, ts).UTC()
		m.Samples = append(m.Samples, s)
		m.Roster.Add(tracking.Entity{ID: s.EntityID})
	}
	return m, rows.Err()
}

// ListMatches returns every imported match, most recent import first.
func (db *DB) ListMatches(ctx context.Context) ([]MatchInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT m.match_id, m.source, m.sample_count, m.imported_unix_nanos,
		       (SELECT COUNT(*) FROM entities e WHERE e.match_id = m.match_id)
		FROM matches m
		ORDER BY m.imported_unix_nanos DESC, m.match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MatchInfo{}
	for rows.Next() {
		var (
			mi MatchInfo
			ts int64
		)
		if err := rows.Scan(&mi.MatchID, &mi.Source, &mi.SampleCount, &ts, &mi.EntityCount); err != nil {
			return nil, err
		}
		mi.ImportedAt = time.Unix(0, ts).UTC()
		out = append(out, mi)
	}
	return out, rows.Err()
}

// DeleteMatch removes a match with its samples and analysis runs.
func (db *DB) DeleteMatch(ctx context.Context, matchID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return nil
}
