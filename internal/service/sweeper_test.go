package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/data"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
	"github.com/webcloud7/wcs.pdfserver/internal/testutil"
)

// stubExpiryRepo lets tests script EvictOlderThan outcomes.
type stubExpiryRepo struct {
	calls   atomic.Int32
	evict   func(call int) (int, error)
	lastTTL atomic.Int64
}

func (s *stubExpiryRepo) EvictOlderThan(ttl time.Duration, _ time.Time) (int, error) {
	n := int(s.calls.Add(1))
	s.lastTTL.Store(int64(ttl))
	if s.evict == nil {
		return 0, nil
	}
	return s.evict(n)
}

func (s *stubExpiryRepo) Stats() model.JobStats { return model.JobStats{} }

func sweeperConfig(ttl, interval time.Duration) config.JobsConfig {
	return config.JobsConfig{TTL: ttl, SweepInterval: interval}
}

func TestNewSweeperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewSweeperService(SweeperServiceOptions{
			Store:  &stubExpiryRepo{},
			Config: sweeperConfig(time.Minute, time.Second),
			Logger: testutil.DiscardLogger(),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewSweeperService(SweeperServiceOptions{Config: sweeperConfig(time.Minute, time.Second)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ExpiryRepository is required")
	})

	t.Run("rejects non-positive durations", func(t *testing.T) {
		_, err := NewSweeperService(SweeperServiceOptions{Store: &stubExpiryRepo{}, Config: sweeperConfig(0, time.Second)})
		require.Error(t, err)
		_, err = NewSweeperService(SweeperServiceOptions{Store: &stubExpiryRepo{}, Config: sweeperConfig(time.Second, 0)})
		require.Error(t, err)
	})

	t.Run("must variant panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewSweeperService(SweeperServiceOptions{}) })
	})
}

func TestSweeperService_SweepOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := data.NewManualTimeProvider(start)
	store := data.NewJobStore(data.JobStoreConfig{Logger: testutil.DiscardLogger(), TimeProvider: clock})

	old := store.Create("old.pdf")
	_, err := store.Complete(old.ID, []byte("%PDF-1.7"))
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	fresh := store.Create("fresh.pdf")
	clock.Advance(11 * time.Minute)

	sink := &testutil.RecordingSink{}
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:   store,
		Config:  sweeperConfig(30*time.Minute, time.Minute),
		Clock:   clock,
		Logger:  testutil.DiscardLogger(),
		Metrics: sink,
	})

	evicted, err := svc.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	_, err = store.Get(old.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Get(fresh.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sink.Total("sweeper.evicted"))
	running, ok := sink.LastGauge("jobs.running")
	require.True(t, ok)
	assert.InDelta(t, 1, running, 0)
}

func TestSweeperService_SweepOnceWrapsErrors(t *testing.T) {
	boom := errors.New("table locked")
	repo := &stubExpiryRepo{evict: func(int) (int, error) { return 0, boom }}
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:  repo,
		Config: sweeperConfig(time.Minute, time.Second),
		Logger: testutil.DiscardLogger(),
	})

	_, err := svc.SweepOnce(context.Background())
	require.ErrorIs(t, err, ErrSweepFailed)
	require.ErrorIs(t, err, boom)
}

func TestSweeperService_SweepOnceRecoversPanic(t *testing.T) {
	repo := &stubExpiryRepo{evict: func(int) (int, error) { panic("corrupt map") }}
	sink := &testutil.RecordingSink{}
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:   repo,
		Config:  sweeperConfig(time.Minute, time.Second),
		Logger:  testutil.DiscardLogger(),
		Metrics: sink,
	})

	evicted, err := svc.SweepOnce(context.Background())
	require.ErrorIs(t, err, ErrSweepFailed)
	assert.Contains(t, err.Error(), "corrupt map")
	assert.Zero(t, evicted)

	runs := sink.Calls("sweeper.runs")
	require.Len(t, runs, 1)
	assert.Equal(t, "error", runs[0].Tags["result"])
}

func TestSweeperService_RunKeepsGoingAfterFailures(t *testing.T) {
	repo := &stubExpiryRepo{evict: func(call int) (int, error) {
		switch call {
		case 1:
			return 0, errors.New("first pass fails")
		case 2:
			panic("second pass panics")
		default:
			return 1, nil
		}
	}}
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:  repo,
		Config: sweeperConfig(time.Minute, 10*time.Millisecond),
		Logger: testutil.DiscardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return repo.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(time.Minute), repo.lastTTL.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeperService_RunStopsPromptlyMidInterval(t *testing.T) {
	repo := &stubExpiryRepo{}
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:  repo,
		Config: sweeperConfig(time.Minute, time.Hour),
		Logger: testutil.DiscardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// The initial pass runs without waiting for the first tick.
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("sweeper did not stop promptly")
	}
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestSweeperService_RunReturnsDeadlineError(t *testing.T) {
	svc := MustNewSweeperService(SweeperServiceOptions{
		Store:  &stubExpiryRepo{},
		Config: sweeperConfig(time.Minute, time.Hour),
		Logger: testutil.DiscardLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
}
