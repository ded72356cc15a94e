package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/recsync/internal/archive"
	"github.com/roach88/recsync/internal/config"
	"github.com/roach88/recsync/internal/livestore"
	"github.com/roach88/recsync/internal/parse"
	"github.com/roach88/recsync/internal/reconcile"
	"github.com/roach88/recsync/internal/record"
	"github.com/roach88/recsync/internal/replay"
	"github.com/roach88/recsync/internal/store"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	ConfigFile string

	// Values bound to flags; merged over the config file by resolve.
	flags config.Reconcile

	// RunIDGenerator overrides run ID generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator RunIDGenerator

	// Publisher overrides the HTTP publisher (for testing).
	Publisher replay.Publisher

	// Now and Location fix time for journal rows and record descriptions.
	Now      func() time.Time
	Location *time.Location
}

// ReconcileResult is the JSON payload of a reconcile run.
type ReconcileResult struct {
	DryRun  bool             `json:"dry_run"`
	Archive parse.Counts     `json:"archive"`
	Live    parse.Counts     `json:"live"`
	Counts  reconcile.Counts `json:"counts"`
	Replay  replay.Stats     `json:"replay"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return newReconcileCommand(&ReconcileOptions{RootOptions: rootOpts})
}

func newReconcileCommand(opts *ReconcileOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <archive>",
		Short: "Republish archived records missing from the live store",
		Long: `Read every location record from a tar archive, compare it by
(created_at, lat, lon) against the YYYY-MM.rec files under the data folder,
and publish the archive-only records to the ingest endpoint in
chronological order.

Settings may also come from a YAML file given with --config; flags win.

Exit codes:
  0 - All pending records processed (or limit reached)
  1 - A publish failed or a record was invalid
  2 - Command error (bad flags, unreadable archive or data folder)

Examples:
  recsync reconcile export.tar.gz -u alice -d phone -e http://localhost:8035/pub -f /var/lib/recorder/store/rec
  recsync reconcile export.tar.gz --config recsync.yaml --dry-run
  recsync reconcile export.tar.gz --config recsync.yaml --limit 100 --rate 5 --journal replay.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.flags.User, "user", "u", "", "user attribution header value (required)")
	f.StringVarP(&opts.flags.Device, "device", "d", "", "device attribution header value (required)")
	f.StringVarP(&opts.flags.Endpoint, "endpoint", "e", "", "ingest endpoint URL (required)")
	f.StringVarP(&opts.flags.DataFolder, "data-folder", "f", "", "live store root directory (required)")
	f.BoolVarP(&opts.flags.DryRun, "dry-run", "n", false, "report pending records without publishing")
	f.IntVarP(&opts.flags.Limit, "limit", "l", 0, "process at most N pending records (0 = all)")
	f.Float64Var(&opts.flags.Rate, "rate", 0, "maximum publish calls per second (0 = unlimited)")
	f.StringVar(&opts.flags.Journal, "journal", "", "record replayed records to this SQLite journal")
	f.BoolVar(&opts.flags.SkipInvalid, "skip-invalid", false, "report and skip records without a valid created_at")
	f.StringVar(&opts.ConfigFile, "config", "", "YAML config file")

	return cmd
}

// resolve merges explicitly set flags over the config file.
func (opts *ReconcileOptions) resolve(cmd *cobra.Command) (config.Reconcile, error) {
	var cfg config.Reconcile
	if opts.ConfigFile != "" {
		loaded, err := config.LoadReconcile(opts.ConfigFile)
		if err != nil {
			return config.Reconcile{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("user") {
		cfg.User = opts.flags.User
	}
	if changed("device") {
		cfg.Device = opts.flags.Device
	}
	if changed("endpoint") {
		cfg.Endpoint = opts.flags.Endpoint
	}
	if changed("data-folder") {
		cfg.DataFolder = opts.flags.DataFolder
	}
	if changed("dry-run") {
		cfg.DryRun = opts.flags.DryRun
	}
	if changed("limit") {
		cfg.Limit = opts.flags.Limit
	}
	if changed("rate") {
		cfg.Rate = opts.flags.Rate
	}
	if changed("journal") {
		cfg.Journal = opts.flags.Journal
	}
	if changed("skip-invalid") {
		cfg.SkipInvalid = opts.flags.SkipInvalid
	}

	if err := cfg.Validate(); err != nil {
		return config.Reconcile{}, err
	}
	return cfg, nil
}

func runReconcile(opts *ReconcileOptions, archivePath string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	runIDGen := opts.RunIDGenerator
	if runIDGen == nil {
		runIDGen = UUIDv7Generator{}
	}
	runID := runIDGen.Generate()

	cfg, err := opts.resolve(cmd)
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "invalid configuration", err, runID, nil)
	}
	logger = logger.With("run_id", runID)

	result := ReconcileResult{DryRun: cfg.DryRun}

	// Archive
	logger.Info("reading archive", "path", archivePath)
	archiveCollector := &parse.Collector{Out: out.Progress(), Logger: logger, SkipInvalid: cfg.SkipInvalid}
	arc, err := archive.Read(archivePath, archiveCollector)
	result.Archive = archiveCollector.Counts()
	if err != nil {
		return failRead(out, err, CodeArchive, "failed to read archive", runID, result)
	}
	logger.Debug("archive read", "compression", arc.Compression, "members", len(arc.Members))
	out.Printf("records in archive: %d\n", len(arc.Records))

	// Live store
	logger.Info("reading data folder", "path", cfg.DataFolder)
	liveCollector := &parse.Collector{Out: out.Progress(), Logger: logger, SkipInvalid: cfg.SkipInvalid}
	live, err := livestore.Read(cfg.DataFolder, liveCollector)
	result.Live = liveCollector.Counts()
	if err != nil {
		return failRead(out, err, CodeDataFolder, "failed to read data folder", runID, result)
	}
	logger.Debug("data folder read", "files", len(live.Files))
	out.Printf("records in data folder: %d\n", len(live.Records))

	diff := reconcile.Diff(arc.Records, live.Records)
	result.Counts = diff.Counts
	out.Printf("records to add: %d\n", diff.Counts.Pending)

	// Journal
	var journal *store.Store
	if cfg.Journal != "" {
		journal, err = store.Open(cfg.Journal)
		if err != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to open journal", err, runID, result)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		if err := journal.BeginRun(cmd.Context(), store.Run{
			ID:           runID,
			StartedAt:    opts.now(),
			ArchivePath:  archivePath,
			DataFolder:   cfg.DataFolder,
			Endpoint:     cfg.Endpoint,
			User:         cfg.User,
			Device:       cfg.Device,
			DryRun:       cfg.DryRun,
			ArchiveCount: diff.Counts.Archive,
			LiveCount:    diff.Counts.Live,
			PendingCount: diff.Counts.Pending,
		}); err != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to record run", err, runID, result)
		}
	}

	// Replay
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	replayer := &replay.Replayer{
		Publisher: opts.publisher(cfg),
		Out:       out.Progress(),
		Limit:     cfg.Limit,
		DryRun:    cfg.DryRun,
		RunID:     runID,
		Location:  opts.Location,
		Logger:    logger,
	}
	if cfg.Rate > 0 {
		replayer.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	if journal != nil {
		replayer.Journal = journal
	}

	stats, replayErr := replayer.Run(ctx, diff.ToAdd)
	result.Replay = stats

	if journal != nil {
		if err := journal.FinishRun(context.WithoutCancel(ctx), runID, opts.now(), stats.Processed, replayErr); err != nil {
			logger.Error("failed to finish journal run", "error", err)
		}
	}

	if cfg.DryRun {
		out.Printf("records that would be added: %d\n", stats.DryRun)
	} else {
		out.Printf("records added: %d\n", stats.Published)
	}
	logger.Info("reconcile finished",
		"archive", diff.Counts.Archive,
		"live", diff.Counts.Live,
		"pending", diff.Counts.Pending,
		"processed", stats.Processed,
		"remaining", stats.Remaining,
	)

	if replayErr != nil {
		return out.Fail(ExitFailure, CodePublish, "replay failed", replayErr, runID, result)
	}
	return out.Success(runID, result)
}

// failRead maps a source read error to an exit code: validation failures
// are run failures, anything else is a command error.
func failRead(out *OutputFormatter, err error, code, message, runID string, result ReconcileResult) error {
	if errors.Is(err, record.ErrValidation) {
		return out.Fail(ExitFailure, CodeInvalidRecord, "invalid record", err, runID, result)
	}
	return out.Fail(ExitCommandError, code, message, err, runID, result)
}

func (opts *ReconcileOptions) publisher(cfg config.Reconcile) replay.Publisher {
	if opts.Publisher != nil {
		return opts.Publisher
	}
	return replay.NewHTTPPublisher(cfg.Endpoint, cfg.User, cfg.Device)
}

func (opts *ReconcileOptions) now() time.Time {
	if opts.Now != nil {
		return opts.Now()
	}
	return time.Now()
}

