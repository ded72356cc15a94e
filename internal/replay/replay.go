// Package replay re-submits pending records to the ingestion boundary.
package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/recsync/internal/record"
	"github.com/roach88/recsync/internal/store"
)

// Journal receives one row per processed record.
// *store.Store satisfies it.
type Journal interface {
	WriteReplay(ctx context.Context, rep store.Replay) error
}

// Stats reports what a run reached.
type Stats struct {
	Processed int `json:"processed"`
	Published int `json:"published"`
	DryRun    int `json:"dry_run"`
	// Remaining counts records not processed because of Limit or a failure.
	Remaining int `json:"remaining"`
}

// Replayer emits records in the order given.
//
// Limit > 0 caps the number of processed records. A failed publish stops
// the run; no retry is attempted and Stats covers only the records reached.
type Replayer struct {
	Publisher Publisher
	Out       io.Writer
	Limit     int
	DryRun    bool

	// Optional.
	Limiter  *rate.Limiter
	Journal  Journal
	RunID    string
	Location *time.Location
	Logger   *slog.Logger
}

// Run replays records and returns what was reached.
func (rp *Replayer) Run(ctx context.Context, records []record.Record) (Stats, error) {
	var stats Stats
	for i, r := range records {
		if rp.Limit > 0 && stats.Processed >= rp.Limit {
			stats.Remaining = len(records) - i
			rp.logger().Debug("replay limit reached", "limit", rp.Limit, "remaining", stats.Remaining)
			return stats, nil
		}

		reached, err := rp.process(ctx, stats.Processed+1, r)
		if reached {
			stats.Processed++
			if rp.DryRun {
				stats.DryRun++
			} else {
				stats.Published++
			}
		}
		if err != nil {
			stats.Remaining = len(records) - stats.Processed
			return stats, err
		}
	}
	return stats, nil
}

// process reports whether r was reached (printed in dry-run mode, accepted by
// the publisher otherwise). A journal failure after that still reports true.
func (rp *Replayer) process(ctx context.Context, seq int, r record.Record) (bool, error) {
	desc := r.Describe(rp.location())

	if rp.DryRun {
		rp.printf("would write: %s\n", desc)
		return true, rp.journal(ctx, seq, r, store.StatusDryRun, nil)
	}

	rp.printf("writing: %s\n", desc)
	if rp.Limiter != nil {
		if err := rp.Limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("replay %s: %w", r.Key(), err)
		}
	}

	if err := rp.Publisher.Publish(ctx, r); err != nil {
		pubErr := fmt.Errorf("publish %s: %w", r.Key(), err)
		if jerr := rp.journal(ctx, seq, r, store.StatusFailed, err); jerr != nil {
			rp.logger().Warn("journal write failed", "seq", seq, "error", jerr)
		}
		return false, pubErr
	}
	rp.logger().Debug("record published", "seq", seq, "key", r.Key().String())
	return true, rp.journal(ctx, seq, r, store.StatusPublished, nil)
}

func (rp *Replayer) journal(ctx context.Context, seq int, r record.Record, status store.Status, cause error) error {
	if rp.Journal == nil {
		return nil
	}
	rep, err := store.NewReplay(rp.RunID, seq, r, status, cause)
	if err != nil {
		return err
	}
	if err := rp.Journal.WriteReplay(ctx, rep); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func (rp *Replayer) printf(format string, args ...any) {
	if rp.Out == nil {
		return
	}
	fmt.Fprintf(rp.Out, format, args...)
}

func (rp *Replayer) location() *time.Location {
	if rp.Location == nil {
		return time.Local
	}
	return rp.Location
}

func (rp *Replayer) logger() *slog.Logger {
	if rp.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rp.Logger
}
