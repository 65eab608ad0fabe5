// Package metrics holds the metric names and tag conventions shared by emitters.
package metrics

import (
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	obserrors "github.com/webcloud7/wcs.pdfserver/internal/observability/errors"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Lifecycle transitions.
const (
	TransitionSubmitted = "submitted"
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
)

// JobMetric captures one job lifecycle event.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job.transition and, when a duration is known, job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// Write-back drop reasons.
const (
	DropNotFound          = "not_found"
	DropInvalidTransition = "invalid_transition"
)

// EmitWriteBackDropped counts a worker result that could not be recorded on its job.
func EmitWriteBackDropped(sink statsd.Sink, reason string) {
	if sink == nil {
		return
	}
	sink.Count("job.writeback_dropped", 1, map[string]string{"reason": reason})
}

// SweepMetric describes one expiry pass.
type SweepMetric struct {
	Evicted  int
	Duration time.Duration
	Stats    model.JobStats
	Err      error
}

// EmitSweep emits the outcome of an expiry pass and the post-sweep job table gauges.
func EmitSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Evicted == 0:
		result = ResultNoop
	}
	tags := map[string]string{"result": result}
	if in.Err != nil {
		tags["error_class"] = obserrors.Classify(in.Err)
	}

	sink.Count("sweeper.runs", 1, tags)
	if in.Evicted > 0 {
		sink.Count("sweeper.evicted", int64(in.Evicted), nil)
	}
	sink.Timing("sweeper.duration", in.Duration, CloneTags(tags))

	if in.Err != nil {
		return
	}
	sink.Gauge("jobs.running", float64(in.Stats.Running), nil)
	sink.Gauge("jobs.completed", float64(in.Stats.Completed), nil)
	sink.Gauge("jobs.failed", float64(in.Stats.Failed), nil)
	sink.Gauge("jobs.total", float64(in.Stats.Total), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
