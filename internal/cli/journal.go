package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recsync/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run's replays
}

// JournalRunResult is one run plus, when requested, its replays.
type JournalRunResult struct {
	Run     store.Run      `json:"run"`
	Replays []store.Replay `json:"replays"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show runs recorded in a replay journal",
		Long: `List reconcile runs recorded with --journal, or the replayed records
of a single run.

Examples:
  recsync journal --db replay.db
  recsync journal --db replay.db --run 0190f1c2-7d3e-7a4b-9c1d-2e3f4a5b6c7d
  recsync journal --db replay.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show replays of one run")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// Open would create an empty journal; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "journal not found", err, "", nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "failed to open journal", err, "", nil)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to list runs", err, "", nil)
		}
		if out.JSON() {
			return out.Success("", runs)
		}
		writeRunsText(out, runs)
		return nil
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return out.Fail(ExitCommandError, CodeJournal, fmt.Sprintf("run %s not found", opts.RunID), nil, opts.RunID, nil)
	}
	if err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "failed to read run", err, opts.RunID, nil)
	}
	replays, err := st.ReadReplays(ctx, opts.RunID)
	if err != nil {
		return out.Fail(ExitCommandError, CodeJournal, "failed to read replays", err, opts.RunID, nil)
	}

	if out.JSON() {
		return out.Success(run.ID, JournalRunResult{Run: run, Replays: replays})
	}
	writeRunsText(out, []store.Run{run})
	for _, rep := range replays {
		line := fmt.Sprintf("  %4d  %-9s  %s  %s", rep.Seq, rep.Status, rep.RecordKey, shortHash(rep.PayloadHash))
		if rep.Error != "" {
			line += "  error: " + rep.Error
		}
		out.Printf("%s\n", line)
	}
	return nil
}

func writeRunsText(out *OutputFormatter, runs []store.Run) {
	if len(runs) == 0 {
		out.Printf("No runs found in journal.\n")
		return
	}
	for _, run := range runs {
		mode := "publish"
		if run.DryRun {
			mode = "dry-run"
		}
		out.Printf("%s  %s  %s  archive=%d live=%d pending=%d replayed=%d\n",
			run.ID, formatRunTime(run.StartedAt), mode,
			run.ArchiveCount, run.LiveCount, run.PendingCount, run.Replayed)
		if run.Error != "" {
			out.Printf("  error: %s\n", run.Error)
		}
	}
}

func formatRunTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
