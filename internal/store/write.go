package store

import (
	"context"
	"fmt"
	"time"
)

// BeginRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, archive_path, data_folder, endpoint, user, device, dry_run,
		 archive_count, live_count, pending_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.StartedAt),
		run.ArchivePath,
		run.DataFolder,
		run.Endpoint,
		run.User,
		run.Device,
		boolToInt(run.DryRun),
		run.ArchiveCount,
		run.LiveCount,
		run.PendingCount,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records how a run ended. runErr may be nil.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, replayed int, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, replayed = ?, error = ?
		WHERE id = ?
	`, formatTime(finishedAt), replayed, errText, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// WriteReplay inserts one replay row.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteReplay(ctx context.Context, rep Replay) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replays
		(run_id, seq, record_key, created_at, payload, payload_hash, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		rep.RunID,
		rep.Seq,
		rep.RecordKey,
		rep.CreatedAt,
		rep.Payload,
		rep.PayloadHash,
		string(rep.Status),
		rep.Error,
	)
	if err != nil {
		return fmt.Errorf("write replay: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
