// Package mocks provides gomock implementations of the service ports for tests.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	renderer := mocks.NewMockRenderer(ctrl)
//	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(pdf, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods for all JobStore interface methods:
// Create, Get, Complete, Fail, EvictOlderThan, Stats
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/webcloud7/wcs.pdfserver/internal/core JobStore

// Generate mock for TaskRunner interface from internal/core package.
// This creates MockTaskRunner with methods for all TaskRunner interface methods:
// Submit
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=task_runner_mock.go github.com/webcloud7/wcs.pdfserver/internal/core TaskRunner

// Generate mock for Renderer interface from internal/core package.
// This creates MockRenderer with methods for all Renderer interface methods:
// Render
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=renderer_mock.go github.com/webcloud7/wcs.pdfserver/internal/core Renderer
