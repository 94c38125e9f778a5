// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the cleaning job.
//
// A global, pluggable backend defaults to a no-op implementation, so metrics
// are always safe to call even when no real backend is configured. Concrete
// metric systems (Prometheus Pushgateway, DogStatsD) live in subpackages and
// translate the metric names declared here.
package metrics

import (
	"context"
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StepTotal       = "fhvclean_step_total"
	StepDuration    = "fhvclean_step_duration_seconds"
	RecordsTotal    = "fhvclean_records_total"
	RejectionsTotal = "fhvclean_rejections_total"
	BatchesTotal    = "fhvclean_batches_total"
)

// Row kinds used with RecordRow.
const (
	KindRead     = "read"
	KindRejected = "rejected"
	KindWritten  = "written"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset restores the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

type jobKey struct{}

// WithJob returns a context carrying the job name used as the "job" label by
// code that has no direct access to it (e.g. the storage loader).
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey{}, job)
}

// JobFromContext returns the job name stored by WithJob, or "".
func JobFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(jobKey{}).(string); ok {
		return s
	}
	return ""
}

// RecordStep measures latency and success/failure for one job step.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter for the given job and kind
// (KindRead, KindRejected, KindWritten).
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordRejection counts rows removed by a named quality rule.
func RecordRejection(job, rule string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RejectionsTotal, float64(delta), Labels{
		"job":  job,
		"rule": rule,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
