// Package cleaner runs the bronze to silver step for for-hire-vehicle trips:
// read the source table, rename the timestamp columns, keep rows that pass
// the quality rules, drop the ingestion metadata columns, and overwrite the
// destination table.
//
// The cleaning runs in one of two modes. In pull mode the rows are read into
// the process and cleaned by a transformer chain. In pushdown mode the same
// chain is compiled to a single SELECT that the storage engine executes into
// the destination, so no rows cross the wire. Both modes perform the same
// schema checks before anything is written.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fhvclean/internal/config"
	"fhvclean/internal/frame"
	"fhvclean/internal/logging"
	"fhvclean/internal/metrics"
	"fhvclean/internal/runlog"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
	"fhvclean/internal/transformer"
	"fhvclean/internal/transformer/builtin"
)

// Step names reported to metrics.
const (
	StepRead      = "read"
	StepTransform = "transform"
	StepWrite     = "write"
	StepVerify    = "verify"
)

// Config is the resolved run configuration.
type Config struct {
	Job         string
	Source      string
	Destination string
	Renames     map[string]string
	DropColumns []string
	Quality     config.Quality
	Pushdown    bool
	VerifyCount bool
	Timeout     time.Duration
}

// FromPipeline resolves a pipeline file into a Config.
func FromPipeline(p config.Pipeline) Config {
	return Config{
		Job:         p.Job,
		Source:      p.Source.Table,
		Destination: p.Destination.Table,
		Renames:     p.Renames,
		DropColumns: p.DropColumns,
		Quality:     p.Quality,
		Pushdown:    p.Runtime.Pushdown,
		VerifyCount: p.Runtime.VerifyCount,
		Timeout:     p.RunTimeout(),
	}
}

// RunResult summarizes one run.
type RunResult struct {
	RunID        string
	Source       string
	Destination  string
	RowsRead     int64
	RowsRejected int64
	RowsWritten  int64
	// Rejections counts rejected rows by the first rule they failed. Empty in
	// pushdown mode.
	Rejections  map[string]int64
	Fingerprint string // pull mode only
	Pushdown    bool
	Duration    time.Duration
}

// Ledger receives one record per run.
type Ledger interface {
	Record(ctx context.Context, run *runlog.Run) error
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger. The default is zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(c *Cleaner) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLedger records every run, successful or not, in l.
func WithLedger(l Ledger) Option {
	return func(c *Cleaner) { c.ledger = l }
}

// Cleaner runs the cleaning step against injected repositories.
type Cleaner struct {
	src    storage.Repository
	dst    storage.Repository
	cfg    Config
	log    *zap.Logger
	ledger Ledger
	now    func() time.Time
}

// New returns a Cleaner reading from src and writing to dst. A nil dst means
// the destination lives in src.
func New(src, dst storage.Repository, cfg Config, opts ...Option) *Cleaner {
	if dst == nil {
		dst = src
	}
	c := &Cleaner{src: src, dst: dst, cfg: cfg, log: zap.L(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("cleaner")
	return c
}

// Rules builds the quality rules in evaluation order: not-null, positive,
// then ordering rules.
func Rules(q config.Quality) []builtin.Rule {
	rules := make([]builtin.Rule, 0, len(q.NotNull)+len(q.Positive)+len(q.NotBefore))
	for _, c := range q.NotNull {
		rules = append(rules, builtin.NotNull(c))
	}
	for _, c := range q.Positive {
		rules = append(rules, builtin.Positive(c))
	}
	for _, o := range q.NotBefore {
		rules = append(rules, builtin.NotBefore(o.Column, o.Reference))
	}
	return rules
}

// Chain returns the rename, filter and drop chain. reject may be nil.
func (c *Cleaner) Chain(reject func(builtin.Rejected)) transformer.Chain {
	return transformer.Chain{
		builtin.Rename{Columns: c.cfg.Renames},
		builtin.Filter{Rules: Rules(c.cfg.Quality), Reject: reject},
		builtin.Drop{Columns: c.cfg.DropColumns},
	}
}

// Run cleans source into the configured destination. An empty source uses
// the configured source table. The destination is not touched when reading
// or any schema check fails.
func (c *Cleaner) Run(ctx context.Context, source string) (RunResult, error) {
	if source == "" {
		source = c.cfg.Source
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	ctx = metrics.WithJob(ctx, c.cfg.Job)

	started := c.now()
	res := RunResult{
		RunID:       uuid.NewString(),
		Source:      source,
		Destination: c.cfg.Destination,
		Rejections:  map[string]int64{},
	}
	pd, pushdown := c.pushdowner()
	res.Pushdown = pushdown

	log := c.log.With(zap.String("run_id", res.RunID))
	log.Info("starting",
		zap.String("source", source),
		zap.String("destination", res.Destination),
		zap.Bool("pushdown", pushdown))

	var err error
	if pushdown {
		err = c.runPushdown(ctx, pd, &res)
		if errors.Is(err, errPullInstead) {
			log.Info("cleaning in process", zap.Error(err))
			res.Pushdown = false
			err = c.runPull(ctx, &res)
		}
	} else {
		err = c.runPull(ctx, &res)
	}
	if err == nil && c.cfg.VerifyCount {
		err = c.verify(ctx, &res)
	}
	res.Duration = c.now().Sub(started)

	c.record(ctx, res, started, err)
	if err != nil {
		log.Error("run failed", zap.Error(err), logging.Elapsed(res.Duration))
		return res, err
	}

	metrics.RecordRow(c.cfg.Job, metrics.KindRead, res.RowsRead)
	metrics.RecordRow(c.cfg.Job, metrics.KindRejected, res.RowsRejected)
	metrics.RecordRow(c.cfg.Job, metrics.KindWritten, res.RowsWritten)
	for rule, n := range res.Rejections {
		metrics.RecordRejection(c.cfg.Job, rule, n)
	}

	log.Info("written",
		zap.String("destination", res.Destination),
		zap.Int64("rows_read", res.RowsRead),
		zap.Int64("rows_rejected", res.RowsRejected),
		zap.Int64("rows_written", res.RowsWritten),
		logging.Elapsed(res.Duration))
	return res, nil
}

// pushdowner reports whether this run may execute inside the engine: it must
// be enabled, the repository must support it, and the destination must live
// behind the same repository as the source. runPushdown still falls back to
// pull mode when a rule compares columns the engine would order as text.
func (c *Cleaner) pushdowner() (storage.Pushdowner, bool) {
	if !c.cfg.Pushdown || c.src != c.dst {
		return nil, false
	}
	pd, ok := c.src.(storage.Pushdowner)
	return pd, ok
}

func (c *Cleaner) runPull(ctx context.Context, res *RunResult) error {
	var f *frame.Frame
	err := c.timed(StepRead, func() error {
		var err error
		if f, err = c.src.ReadTable(ctx, res.Source); err != nil {
			return readError(res.Source, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.RowsRead = int64(f.Len())

	err = c.timed(StepTransform, func() error {
		var err error
		f, err = c.Chain(func(r builtin.Rejected) { res.Rejections[r.Rule]++ }).Apply(f)
		if err != nil {
			return schemaError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.RowsRejected = res.RowsRead - int64(f.Len())
	res.Fingerprint = f.Fingerprint()

	return c.timed(StepWrite, func() error {
		n, err := c.dst.OverwriteTable(ctx, res.Destination, f)
		if err != nil {
			return writeError(res.Destination, err)
		}
		res.RowsWritten = n
		return nil
	})
}

// errPullInstead reports that the plan cannot run inside the engine with
// the same semantics as the in-process chain.
var errPullInstead = errors.New("pushdown unavailable")

func (c *Cleaner) runPushdown(ctx context.Context, pd storage.Pushdowner, res *RunResult) error {
	var cols []frame.Column
	err := c.timed(StepRead, func() error {
		var err error
		if cols, err = pd.Columns(ctx, res.Source); err != nil {
			return readError(res.Source, err)
		}
		if res.RowsRead, err = c.src.CountRows(ctx, res.Source); err != nil {
			return readError(res.Source, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var (
		plan     *sqlplan.Plan
		query    string
		fallback error
	)
	err = c.timed(StepTransform, func() error {
		plan = sqlplan.New(res.Source, cols)
		if err := c.Chain(nil).Plan(plan); err != nil {
			if errors.Is(err, sqlplan.ErrNotPushable) {
				fallback = err
				return nil
			}
			return schemaError(err)
		}
		var err error
		if query, err = plan.Render(pd.Dialect()); err != nil {
			return fmt.Errorf("render query: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if fallback != nil {
		return fmt.Errorf("%w: %w", errPullInstead, fallback)
	}
	c.log.Debug("pushdown query", zap.String("sql", query))

	return c.timed(StepWrite, func() error {
		n, err := pd.OverwriteFromQuery(ctx, res.Destination, plan.Columns(), query)
		if err != nil {
			return writeError(res.Destination, err)
		}
		res.RowsWritten = n
		res.RowsRejected = res.RowsRead - n
		return nil
	})
}

// verify re-counts the destination and fails when it disagrees with the
// number of rows the write reported.
func (c *Cleaner) verify(ctx context.Context, res *RunResult) error {
	return c.timed(StepVerify, func() error {
		n, err := c.dst.CountRows(ctx, res.Destination)
		if err != nil {
			return writeError(res.Destination, fmt.Errorf("count: %w", err))
		}
		if n != res.RowsWritten {
			return writeError(res.Destination, fmt.Errorf("wrote %d rows but table holds %d", res.RowsWritten, n))
		}
		return nil
	})
}

func (c *Cleaner) timed(step string, fn func() error) error {
	start := c.now()
	err := fn()
	metrics.RecordStep(c.cfg.Job, step, err, c.now().Sub(start))
	return err
}

// record appends the run to the ledger. A ledger failure is logged and does
// not fail the run.
func (c *Cleaner) record(ctx context.Context, res RunResult, started time.Time, runErr error) {
	if c.ledger == nil {
		return
	}
	run := &runlog.Run{
		ID:           res.RunID,
		Job:          c.cfg.Job,
		Source:       res.Source,
		Destination:  res.Destination,
		Status:       runlog.StatusSucceeded,
		RowsRead:     res.RowsRead,
		RowsRejected: res.RowsRejected,
		RowsWritten:  res.RowsWritten,
		Fingerprint:  res.Fingerprint,
		Pushdown:     res.Pushdown,
		StartedAt:    started.UTC(),
		FinishedAt:   started.Add(res.Duration).UTC(),
	}
	if runErr != nil {
		run.Status = runlog.StatusFailed
		run.Error = runErr.Error()
	}
	// The run context may have expired; the record is still wanted.
	if err := c.ledger.Record(context.WithoutCancel(ctx), run); err != nil {
		c.log.Warn("run ledger write failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
}
