package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/core"
	domainjob "github.com/webcloud7/wcs.pdfserver/internal/domain/job"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/metrics"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/statsd"
)

// JobTypeConversion tags metrics for document-to-PDF jobs.
const JobTypeConversion = "conversion"

// MessageShuttingDown is recorded on a job the worker pool refused to accept.
const MessageShuttingDown = "service shutting down"

var (
	// ErrArtifactNotReady is returned by GetArtifact for a job that is not COMPLETED.
	ErrArtifactNotReady = apperrors.Conflict("artifact not ready")
	// ErrNotificationsStopped is returned by WaitForCompletion when the notifier shuts down
	// before the job finishes.
	ErrNotificationsStopped = apperrors.Unavailable("job notifications stopped")
	// ErrEmptyRender is the computation error used when a task yields no bytes.
	ErrEmptyRender = errors.New("renderer produced an empty document")
)

// ConversionServiceOptions groups dependencies for ConversionService.
type ConversionServiceOptions struct {
	Store         core.JobStore      // Required: job table
	Runner        core.TaskRunner    // Required: worker pool
	Renderer      core.Renderer      // Required: document renderer
	Notifier      domainjob.Notifier // Optional: completion fan-out; defaults to an in-memory notifier
	RenderTimeout time.Duration      // Optional: bounds each render; zero means no bound
	Logger        *slog.Logger       // Optional: structured logger
	Metrics       statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// ConversionService coordinates the job lifecycle: it creates a RUNNING job, hands the
// computation to the worker pool and writes the outcome back to the store.
type ConversionService struct {
	store         core.JobStore
	runner        core.TaskRunner
	renderer      core.Renderer
	notifier      domainjob.Notifier
	renderTimeout time.Duration
	logger        *slog.Logger
	metrics       statsd.Sink
}

// NewConversionService constructs a new ConversionService.
func NewConversionService(opts ConversionServiceOptions) (*ConversionService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("TaskRunner is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("Renderer is required")
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = domainjob.NewNotifier()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ConversionService{
		store:         opts.Store,
		runner:        opts.Runner,
		renderer:      opts.Renderer,
		notifier:      notifier,
		renderTimeout: opts.RenderTimeout,
		logger:        logger.With("component", "conversion_service"),
		metrics:       opts.Metrics,
	}, nil
}

// MustNewConversionService constructs a new ConversionService and panics on error.
func MustNewConversionService(opts ConversionServiceOptions) *ConversionService {
	svc, err := NewConversionService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ConversionService: %v", err))
	}
	return svc
}

// Submit validates req and enqueues a render of it. The returned job is RUNNING.
func (s *ConversionService) Submit(ctx context.Context, req *model.ConvertRequest) (*model.Job, error) {
	if req == nil {
		return nil, invalidRequest(model.ErrURLRequired)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	renderReq := req.RenderRequest()
	return s.Enqueue(ctx, req.Filename, func(taskCtx context.Context) ([]byte, error) {
		return s.render(taskCtx, renderReq)
	})
}

// Enqueue creates a RUNNING job named name and schedules compute on the worker pool.
// It returns as soon as the job exists; compute runs asynchronously.
func (s *ConversionService) Enqueue(ctx context.Context, name string, compute core.Task) (*model.Job, error) {
	if compute == nil {
		return nil, apperrors.Internal("computation is required")
	}

	job := s.store.Create(name)
	logger := s.logger.With("job_id", job.ID)

	err := s.runner.Submit(compute, func(res core.TaskResult) {
		s.writeBack(job.ID, res)
	})
	if err != nil {
		logger.WarnContext(ctx, "worker pool rejected job", "error", err)
		if _, failErr := s.store.Fail(job.ID, MessageShuttingDown); failErr != nil {
			logger.WarnContext(ctx, "could not fail rejected job", "error", failErr)
		}
		s.notifier.Publish(job.ID)
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			JobType:    JobTypeConversion,
			Transition: metrics.TransitionSubmitted,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, MessageShuttingDown)
	}

	logger.InfoContext(ctx, "conversion job submitted", "name", name)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    JobTypeConversion,
		Transition: metrics.TransitionSubmitted,
		Result:     metrics.ResultSuccess,
	})
	return job, nil
}

// writeBack records a task outcome on its job. Both store errors it can hit are expected
// under races with the sweeper and are reported, never propagated.
func (s *ConversionService) writeBack(id string, res core.TaskResult) {
	logger := s.logger.With("job_id", id)

	computeErr := res.Err
	if computeErr == nil && len(res.Artifact) == 0 {
		computeErr = ErrEmptyRender
	}

	var (
		err        error
		transition string
	)
	if computeErr == nil {
		transition = metrics.TransitionCompleted
		_, err = s.store.Complete(id, res.Artifact)
	} else {
		transition = metrics.TransitionFailed
		message := model.FailureMessage(computeErr)
		logger.Warn("conversion failed", "message", message, "error", computeErr)
		_, err = s.store.Fail(id, message)
	}

	switch {
	case err == nil:
		logger.Info("conversion job finished",
			"status", transition,
			"duration", res.Duration,
			"waited", res.Waited,
			"bytes", len(res.Artifact))
	case apperrors.IsNotFound(err):
		logger.Warn("dropping result for missing job", "status", transition, "error", err)
		metrics.EmitWriteBackDropped(s.metrics, metrics.DropNotFound)
		return
	case errors.Is(err, domainjob.ErrInvalidTransition):
		logger.Error("refusing to overwrite finished job", "status", transition, "error", err)
		metrics.EmitWriteBackDropped(s.metrics, metrics.DropInvalidTransition)
		return
	default:
		logger.Error("could not record conversion result", "status", transition, "error", err)
		return
	}

	result := metrics.ResultSuccess
	if computeErr != nil {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    JobTypeConversion,
		Transition: transition,
		Result:     result,
		Duration:   res.Waited + res.Duration,
		Err:        computeErr,
	})
	s.notifier.Publish(id)
}

// GetStatus returns a snapshot of job id.
func (s *ConversionService) GetStatus(_ context.Context, id string) (*model.Job, error) {
	return s.store.Get(id)
}

// Stats returns job counts per status.
func (s *ConversionService) Stats() model.JobStats {
	return s.store.Stats()
}

// GetArtifact returns the artifact of a COMPLETED job.
func (s *ConversionService) GetArtifact(ctx context.Context, id string) (*model.ArtifactDownload, error) {
	job, err := s.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.Artifact == nil {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, ErrArtifactNotReady)
	}
	return &model.ArtifactDownload{JobID: job.ID, Filename: job.Name, Artifact: job.Artifact}, nil
}

// WaitForCompletion blocks until job id leaves RUNNING or ctx is done. When ctx ends
// first it returns the latest snapshot together with ctx.Err().
func (s *ConversionService) WaitForCompletion(ctx context.Context, id string) (*model.Job, error) {
	// Subscribe before the first read so a transition in between is not missed.
	unsubscribe, ch := s.notifier.Subscribe(id)
	defer unsubscribe()

	for {
		job, err := s.store.Get(id)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return job, ErrNotificationsStopped
			}
		}
	}
}

// ConvertSync renders req on the caller's goroutine and returns the PDF bytes.
// Failures come back as fetch_failed or render_failed errors carrying the job failure message.
func (s *ConversionService) ConvertSync(ctx context.Context, req *model.ConvertRequest) ([]byte, error) {
	if req == nil {
		return nil, invalidRequest(model.ErrURLRequired)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(err)
	}

	start := time.Now()
	pdf, err := s.render(ctx, req.RenderRequest())
	if err == nil && len(pdf) == 0 {
		err = ErrEmptyRender
	}
	if err != nil {
		s.logger.WarnContext(ctx, "synchronous conversion failed", "url", req.URL, "error", err)
		code := apperrors.ErrCodeRenderFailed
		if errors.Is(err, model.ErrFetchFailed) {
			code = apperrors.ErrCodeFetchFailed
		}
		return nil, apperrors.Wrap(err, code, model.FailureMessage(err))
	}

	s.logger.InfoContext(ctx, "synchronous conversion finished",
		"url", req.URL,
		"duration", time.Since(start),
		"bytes", len(pdf))
	return pdf, nil
}

// Close releases anyone blocked in WaitForCompletion.
func (s *ConversionService) Close() {
	s.notifier.StopAll()
}

// invalidRequest reports a rejected conversion request against its url field,
// the only one ConvertRequest.Validate checks.
func invalidRequest(err error) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeValidation, Message: err.Error(), Cause: err, Field: "url"}
}

func (s *ConversionService) render(ctx context.Context, req model.RenderRequest) ([]byte, error) {
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}
	return s.renderer.Render(ctx, req)
}
