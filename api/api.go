// Package api exposes the engine's RPC surface (spec.md §6: Submit, Read,
// ListTasks) as plain Go methods over *engine.Engine, skipping any wire
// codec the way 88lin-divinesense's service layer sits directly on top of
// its store/biz packages before a gRPC/HTTP transport is layered on.
package api

import (
	"context"
	"fmt"

	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/engine"
	"github.com/ingestkit/engine/queue"
	"github.com/ingestkit/engine/store"
)

// Service is the RPC-shaped entry point callers (a future gRPC/HTTP
// transport, or cmd/engine's own CLI) drive; it holds no state beyond the
// Engine it wraps.
type Service struct {
	Engine *engine.Engine
}

// New wraps e in a Service.
func New(e *engine.Engine) *Service {
	return &Service{Engine: e}
}

// SubmitRequest is the argument shape for Submit.
type SubmitRequest struct {
	Name      string
	SourceURL string
	Config    config.ProcessingConfig
	Class     queue.Class
}

// SubmitResponse carries the newly created package's id.
type SubmitResponse struct {
	ID string
}

// Submit admits a new package into the engine, implementing spec.md §6's
// Submit(name, url, config) -> {id}. A queue.ErrQueueFull or
// queue.ErrAlreadyActive is returned unwrapped so callers can match it
// with errors.Is.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if req.Name == "" {
		return SubmitResponse{}, fmt.Errorf("api: submit: name is required")
	}
	if req.SourceURL == "" {
		return SubmitResponse{}, fmt.Errorf("api: submit: source url is required")
	}

	pkg, err := s.Engine.Submit(ctx, req.Name, req.SourceURL, req.Config, req.Class)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{ID: pkg.ID}, nil
}

// ErrPackageNotFound is returned by Read for an unknown id, re-exporting
// store.ErrPackageNotFound so callers never need to import store directly
// just to match the not-found case spec.md §7 names.
var ErrPackageNotFound = store.ErrPackageNotFound
