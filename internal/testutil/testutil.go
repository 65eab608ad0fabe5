// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MetricCall is one recorded emission.
type MetricCall struct {
	Kind     string
	Name     string
	Value    float64
	Duration time.Duration
	Tags     map[string]string
}

// RecordingSink is a statsd.Sink that keeps every emission in memory.
type RecordingSink struct {
	mu    sync.Mutex
	calls []MetricCall
}

// Count records a counter emission.
func (s *RecordingSink) Count(name string, value int64, tags map[string]string) {
	s.record(MetricCall{Kind: "count", Name: name, Value: float64(value), Tags: copyTags(tags)})
}

// Gauge records a gauge emission.
func (s *RecordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.record(MetricCall{Kind: "gauge", Name: name, Value: value, Tags: copyTags(tags)})
}

// Timing records a timing emission.
func (s *RecordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.record(MetricCall{Kind: "timing", Name: name, Duration: value, Tags: copyTags(tags)})
}

func (s *RecordingSink) record(c MetricCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Calls returns every emission with the given name.
func (s *RecordingSink) Calls(name string) []MetricCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MetricCall
	for _, c := range s.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Total sums the values of every counter emission with the given name.
func (s *RecordingSink) Total(name string) int64 {
	var total int64
	for _, c := range s.Calls(name) {
		if c.Kind == "count" {
			total += int64(c.Value)
		}
	}
	return total
}

// LastGauge returns the most recent gauge value for name.
func (s *RecordingSink) LastGauge(name string) (float64, bool) {
	calls := s.Calls(name)
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Kind == "gauge" {
			return calls[i].Value, true
		}
	}
	return 0, false
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
