package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/core"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/metrics"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/statsd"
)

// ErrSweepFailed wraps any error or panic raised during an expiry pass.
var ErrSweepFailed = errors.New("sweep failed")

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Store   core.ExpiryRepository // Required: job table to evict from
	Config  config.JobsConfig     // Required: TTL and sweep interval
	Clock   core.Clock            // Optional: defaults to time.Now
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// SweeperService periodically evicts jobs older than the configured TTL.
//
// A failed pass is logged and the loop carries on with the next tick.
type SweeperService struct {
	store    core.ExpiryRepository
	ttl      time.Duration
	interval time.Duration
	clock    core.Clock
	logger   *slog.Logger
	metrics  statsd.Sink
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Store == nil {
		return nil, errors.New("ExpiryRepository is required")
	}
	if opts.Config.TTL <= 0 {
		return nil, fmt.Errorf("job ttl must be positive, got %v", opts.Config.TTL)
	}
	if opts.Config.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", opts.Config.SweepInterval)
	}

	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "expiry_sweeper")
	logger.Debug("SweeperService initialized",
		"ttl", opts.Config.TTL,
		"interval", opts.Config.SweepInterval,
	)

	return &SweeperService{
		store:    opts.Store,
		ttl:      opts.Config.TTL,
		interval: opts.Config.SweepInterval,
		clock:    clock,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// MustNewSweeperService constructs a new SweeperService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewSweeperService(opts SweeperServiceOptions) *SweeperService {
	svc, err := NewSweeperService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create SweeperService: %v", err))
	}
	return svc
}

// Run sweeps once immediately and then every interval until ctx is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting expiry sweeper", "interval", s.interval, "ttl", s.ttl)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logSweepError(ctx, err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "expiry sweeper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logSweepError(ctx, err, "sweep")
			}
		}
	}
}

// SweepOnce evicts every job whose age exceeds the TTL and returns how many were
// removed. Errors and panics from the store come back wrapped in ErrSweepFailed.
func (s *SweeperService) SweepOnce(ctx context.Context) (evicted int, err error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "expiry sweep panicked", "panic", r, "stack", string(debug.Stack()))
			evicted = 0
			err = fmt.Errorf("%w: panic: %v", ErrSweepFailed, r)
		}
		s.emit(evicted, time.Since(start), err)
	}()

	evicted, err = s.store.EvictOlderThan(s.ttl, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSweepFailed, err)
	}
	if evicted > 0 {
		s.logger.InfoContext(ctx, "evicted expired jobs", "count", evicted, "ttl", s.ttl)
	}
	return evicted, nil
}

func (s *SweeperService) emit(evicted int, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	in := metrics.SweepMetric{Evicted: evicted, Duration: elapsed, Err: err}
	if err == nil {
		in.Stats = s.store.Stats()
	}
	metrics.EmitSweep(s.metrics, in)
}

func (s *SweeperService) logSweepError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
