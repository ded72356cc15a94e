package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, started_at, archive_path, data_folder, endpoint, user, device, dry_run,
		archive_count, live_count, pending_count, finished_at, replayed, error`

// ListRuns returns all runs ordered by id (UUIDv7, so by start time).
// Returns an empty slice (not nil) if there are no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ReadReplays returns a run's replay rows ordered by seq.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadReplays(ctx context.Context, runID string) ([]Replay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, record_key, created_at, payload, payload_hash, status, error
		FROM replays
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query replays: %w", err)
	}
	defer rows.Close()

	replays := []Replay{}
	for rows.Next() {
		var rep Replay
		var status string
		if err := rows.Scan(&rep.RunID, &rep.Seq, &rep.RecordKey, &rep.CreatedAt,
			&rep.Payload, &rep.PayloadHash, &status, &rep.Error); err != nil {
			return nil, fmt.Errorf("scan replay: %w", err)
		}
		rep.Status = Status(status)
		replays = append(replays, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replays: %w", err)
	}
	return replays, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedAt, finishedAt string
	var dryRun int
	if err := row.Scan(
		&run.ID, &startedAt, &run.ArchivePath, &run.DataFolder, &run.Endpoint,
		&run.User, &run.Device, &dryRun,
		&run.ArchiveCount, &run.LiveCount, &run.PendingCount,
		&finishedAt, &run.Replayed, &run.Error,
	); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	run.DryRun = dryRun != 0
	return run, nil
}
