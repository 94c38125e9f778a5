package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fhvclean/internal/cleaner"
	"fhvclean/internal/config"
	"fhvclean/internal/logging"
	"fhvclean/internal/metrics"
	"fhvclean/internal/metrics/datadog"
	"fhvclean/internal/metrics/prompush"
	"fhvclean/internal/runlog"
)

type runOptions struct {
	source         string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
	pushdown       bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean the source table and overwrite the destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runClean(ctx, cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "", "source table (overrides source.table)")
	f.StringVar(&opts.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	f.StringVar(&opts.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	f.StringVar(&opts.statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env STATSD_ADDR)")
	f.BoolVar(&opts.pushdown, "pushdown", false, "run the cleaning inside the storage engine when supported")
	return cmd
}

func runClean(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	p, err := loadPipeline(root, cmd.ErrOrStderr(), func(p *config.Pipeline) {
		if opts.source != "" {
			p.Source.Table = opts.source
		}
		if opts.metricsBackend != "" {
			p.Metrics.Backend = opts.metricsBackend
		}
		if opts.pushgatewayURL != "" {
			p.Metrics.PushgatewayURL = opts.pushgatewayURL
		}
		if opts.statsdAddr != "" {
			p.Metrics.StatsdAddr = opts.statsdAddr
		}
		if opts.pushdown {
			p.Runtime.Pushdown = true
		}
	})
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Config{
		Level:      p.Log.Level,
		File:       p.Log.File,
		MaxSizeMB:  p.Log.MaxSizeMB,
		MaxBackups: p.Log.MaxBackups,
		MaxAgeDays: p.Log.MaxAgeDays,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()
	defer zap.ReplaceGlobals(logger)()

	flush := setupMetrics(p, logger)
	defer flush()

	cleanerOpts := []cleaner.Option{cleaner.WithLogger(logger)}
	if p.RunLog.Kind != "" {
		ledger, err := runlog.Open(p.RunLog.Kind, p.RunLog.DSN)
		if err != nil {
			return err
		}
		defer ledger.Close()
		cleanerOpts = append(cleanerOpts, cleaner.WithLedger(ledger))
	}

	c, closeRepos, err := cleaner.Open(ctx, p, cleanerOpts...)
	if err != nil {
		return err
	}
	defer closeRepos()

	res, err := c.Run(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned Record Count: %d\n", res.RowsWritten)
	return nil
}

// setupMetrics installs the configured backend and returns a function that
// flushes it and restores the no-op backend. A backend that fails to start
// disables metrics instead of failing the run.
func setupMetrics(p config.Pipeline, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.StatsdAddr,
			GlobalTags: append([]string{"job:" + p.Job}, p.Metrics.Tags...),
		})
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", p.Metrics.Backend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; using nop", zap.String("backend", p.Metrics.Backend), zap.Error(err))
		return func() {}
	}

	log.Info("metrics enabled", zap.String("backend", p.Metrics.Backend), zap.String("job", p.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
		metrics.Reset()
	}
}
