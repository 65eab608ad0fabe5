package testutil

import (
	"context"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/core"
)

// SuccessTask returns a task that sleeps for delay and then yields artifact.
func SuccessTask(artifact []byte, delay time.Duration) core.Task {
	return func(ctx context.Context) ([]byte, error) {
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		return artifact, nil
	}
}

// ErrorTask returns a task that sleeps for delay and then fails with err.
func ErrorTask(err error, delay time.Duration) core.Task {
	return func(ctx context.Context) ([]byte, error) {
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		return nil, err
	}
}

// BlockingTask returns a task that signals started, then waits for release before yielding artifact.
func BlockingTask(started chan<- struct{}, release <-chan struct{}, artifact []byte) core.Task {
	return func(ctx context.Context) ([]byte, error) {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-release:
			return artifact, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// PanicTask returns a task that panics with v.
func PanicTask(v any) core.Task {
	return func(context.Context) ([]byte, error) {
		panic(v)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
