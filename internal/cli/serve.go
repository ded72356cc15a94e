package cli

import (
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/recsync/internal/config"
	"github.com/roach88/recsync/internal/ingest"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	flags config.Serve

	// Listener overrides the listen address (for testing).
	Listener net.Listener

	// Now overrides the daily log clock (for testing).
	Now func() time.Time
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest endpoint",
		Long: `Accept location records on POST /pub and append them, with their
X-Limit-* attribution headers, to one <YYYYMMDD>.json.log file per UTC day.

Flags default to the RECSYNC_HOST, RECSYNC_PORT and RECSYNC_DATA_DIR
environment variables when set.

Endpoints:
  POST /pub      append one record
  GET  /healthz  liveness
  GET  /metrics  Prometheus metrics

Example:
  recsync serve --host 0.0.0.0 --port 8035 --data-dir /var/lib/recsync`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.flags.Host, "host", "o", "localhost", "listen host")
	f.IntVarP(&opts.flags.Port, "port", "p", 8035, "listen port")
	f.StringVarP(&opts.flags.DataDir, "data-dir", "d", "data", "directory for daily log files")

	return cmd
}

// resolve merges explicitly set flags over the environment.
func (opts *ServeOptions) resolve(cmd *cobra.Command) (config.Serve, error) {
	cfg, err := config.LoadServe()
	if err != nil {
		return config.Serve{}, err
	}
	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Host = opts.flags.Host
	}
	if changed("port") {
		cfg.Port = opts.flags.Port
	}
	if changed("data-dir") {
		cfg.DataDir = opts.flags.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return config.Serve{}, err
	}
	return cfg, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := opts.resolve(cmd)
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "invalid configuration", err, "", nil)
	}

	dailyLog, err := ingest.NewDailyLog(cfg.DataDir, opts.Now)
	if err != nil {
		return out.Fail(ExitCommandError, CodeServe, "failed to prepare data dir", err, "", nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &ingest.Server{
		Addr:    cfg.Addr(),
		Handler: ingest.NewHandler(dailyLog, logger, reg),
		Logger:  logger,
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	logger.Info("serving", "addr", cfg.Addr(), "data_dir", cfg.DataDir)
	if opts.Listener != nil {
		err = srv.Serve(ctx, opts.Listener)
	} else {
		err = srv.ListenAndServe(ctx)
	}
	if err != nil {
		return out.Fail(ExitFailure, CodeServe, "server error", err, "", nil)
	}

	logger.Info("server stopped gracefully")
	return nil
}
