package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
)

// Run describes one stored analysis.
type Run struct {
	ID               string    `json:"run_id"`
	CreatedAt        time.Time `json:"created_at"`
	LaneThreshold    float64   `json:"lane_threshold_m"`
	AngularThreshold float64   `json:"angular_threshold_rad"`
	Policy           string    `json:"pairing_policy"`
	Images           int       `json:"images"`
}

// ImageRow is the per-image summary stored with a run.
type ImageRow struct {
	Image      string `json:"image"`
	Vehicles   int    `json:"vehicles"`
	Malformed  int    `json:"malformed"`
	Candidates int    `json:"candidates"`
	Retained   int    `json:"retained"`
	Degenerate bool   `json:"degenerate"`
}

// RecordAnalysis stores a in a single transaction and returns the new
// run ID.
func (db *DB) RecordAnalysis(ctx context.Context, a *tailgate.Analysis) (string, error) {
	runID := uuid.New().String()
	opts := a.Options()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, created_at, lane_threshold_m, angular_threshold, pairing_policy, image_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, db.clock.Now().UTC().Format(time.RFC3339Nano),
		opts.LaneThreshold, opts.Angular(), opts.Policy.String(), a.Len())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	imageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO image_results (run_id, image, vehicles, malformed, candidates, retained, degenerate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer imageStmt.Close()

	pairStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pair_parameters (
			run_id, image, record_index, pair, leader_heading, follower_heading,
			same_lane, lane_distance, heading_maintained, rotational_difference,
			current_distance, max_speed_difference_kmh
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer pairStmt.Close()

	for _, key := range a.ImageKeys() {
		res, _ := a.Result(key)
		if _, err := imageStmt.ExecContext(ctx, runID, key, len(res.Roster), res.Malformed,
			len(res.Candidates), len(res.Retained), res.Degenerate); err != nil {
			return "", fmt.Errorf("insert image %s: %w", key, err)
		}
		for i, p := range res.Parameters {
			row := toRow(p)
			if _, err := pairStmt.ExecContext(ctx, runID, key, i, p.Pair, p.LeaderHeading, p.FollowerHeading,
				row.sameLane, row.laneDistance, row.headingMaintained, row.rotationalDifference,
				row.currentDistance, row.maxSpeed); err != nil {
				return "", fmt.Errorf("insert %s/%s: %w", key, p.Pair, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// nullable columns of one pair_parameters row
type paramRow struct {
	sameLane             sql.NullBool
	laneDistance         sql.NullFloat64
	headingMaintained    sql.NullBool
	rotationalDifference sql.NullFloat64
	currentDistance      sql.NullFloat64
	maxSpeed             sql.NullFloat64
}

func toRow(p tailgate.PairParameters) paramRow {
	var r paramRow
	if p.Lane != nil {
		r.sameLane = sql.NullBool{Bool: p.Lane.SameLane(), Valid: true}
		r.laneDistance = sql.NullFloat64{Float64: p.Lane.Distance, Valid: true}
	}
	if p.Heading != nil {
		r.headingMaintained = sql.NullBool{Bool: p.Heading.Maintained(), Valid: true}
		r.rotationalDifference = sql.NullFloat64{Float64: p.Heading.Difference, Valid: true}
	}
	if p.CurrentDistance != nil {
		r.currentDistance = sql.NullFloat64{Float64: *p.CurrentDistance, Valid: true}
	}
	if p.MaxSpeedDifferenceKMH != nil {
		r.maxSpeed = sql.NullFloat64{Float64: *p.MaxSpeedDifferenceKMH, Valid: true}
	}
	return r
}

func (r paramRow) apply(p *tailgate.PairParameters) {
	if r.sameLane.Valid {
		outcome := tailgate.LaneRejected
		if r.sameLane.Bool {
			outcome = tailgate.LaneRetained
		}
		p.Lane = &tailgate.LaneVerdict{Outcome: outcome, Distance: r.laneDistance.Float64}
	}
	if r.headingMaintained.Valid {
		outcome := tailgate.HeadingExceeded
		if r.headingMaintained.Bool {
			outcome = tailgate.HeadingMaintained
		}
		p.Heading = &tailgate.HeadingVerdict{Outcome: outcome, Difference: r.rotationalDifference.Float64}
	}
	if r.currentDistance.Valid {
		v := r.currentDistance.Float64
		p.CurrentDistance = &v
	}
	if r.maxSpeed.Valid {
		v := r.maxSpeed.Float64
		p.MaxSpeedDifferenceKMH = &v
	}
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, created_at, lane_threshold_m, angular_threshold, pairing_policy, image_count
		FROM analysis_runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &created, &r.LaneThreshold, &r.AngularThreshold, &r.Policy, &r.Images); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (db *DB) runExists(ctx context.Context, runID string) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// RunImages returns the per-image rows of a run in image order.
func (db *DB) RunImages(ctx context.Context, runID string) ([]ImageRow, error) {
	if err := db.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT image, vehicles, malformed, candidates, retained, degenerate
		FROM image_results WHERE run_id = ? ORDER BY image`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ImageRow{}
	for rows.Next() {
		var r ImageRow
		if err := rows.Scan(&r.Image, &r.Vehicles, &r.Malformed, &r.Candidates, &r.Retained, &r.Degenerate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunParameters reads back the parameter records stored for one image of a
// run, in record order. An image without records gives an empty slice.
func (db *DB) RunParameters(ctx context.Context, runID, image string) ([]tailgate.PairParameters, error) {
	if err := db.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT pair, leader_heading, follower_heading, same_lane, lane_distance,
		       heading_maintained, rotational_difference, current_distance, max_speed_difference_kmh
		FROM pair_parameters
		WHERE run_id = ? AND image = ?
		ORDER BY record_index`, runID, image)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []tailgate.PairParameters{}
	for rows.Next() {
		var p tailgate.PairParameters
		var r paramRow
		if err := rows.Scan(&p.Pair, &p.LeaderHeading, &p.FollowerHeading, &r.sameLane, &r.laneDistance,
			&r.headingMaintained, &r.rotationalDifference, &r.currentDistance, &r.maxSpeed); err != nil {
			return nil, err
		}
		r.apply(&p)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM analysis_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}
