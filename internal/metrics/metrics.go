// Package metrics provides a small, backend-agnostic abstraction for recording
// pipeline metrics.
//
// A global, pluggable Backend defaults to a no-op implementation, so calls
// are always safe even when no real backend is configured. Concrete metric
// systems live in subpackages (see prompush).
package metrics

import "time"

// Metric names understood by backends.
const (
	StageTotal      = "csvformatter_stage_total"
	StageDuration   = "csvformatter_stage_duration_seconds"
	RowsTotal       = "csvformatter_rows_total"
	ExecInvocations = "csvformatter_exec_invocations_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage records one execution of a pipeline stage with its latency and
// outcome.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}
	backend.IncCounter(StageTotal, 1, lbls)
	backend.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRows adds the row count observed after a stage, e.g. "parsed",
// "filtered", "emitted". Non-positive deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordExec counts external command invocations by outcome.
func RecordExec(job string, ok, failed int64) {
	if ok > 0 {
		backend.IncCounter(ExecInvocations, float64(ok), Labels{"job": job, "status": "success"})
	}
	if failed > 0 {
		backend.IncCounter(ExecInvocations, float64(failed), Labels{"job": job, "status": "failure"})
	}
}
