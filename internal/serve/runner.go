package serve

import (
	"context"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// Runner is the "serve" task: it starts the server and the watcher and
// blocks until ctx is cancelled or the server fails.
type Runner struct {
	name    string
	server  *Server
	watcher *watch.Watcher
}

// NewRunner creates the serve task. watcher may be nil.
func NewRunner(name string, server *Server, watcher *watch.Watcher) *Runner {
	return &Runner{name: name, server: server, watcher: watcher}
}

// Name implements task.Runnable.
func (r *Runner) Name() string { return r.name }

// Server returns the underlying HTTP server.
func (r *Runner) Server() *Server { return r.server }

// Run implements task.Runnable.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.server.Start(ctx); err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := make(chan struct{})
	if r.watcher != nil {
		if err := r.watcher.Start(); err != nil {
			r.shutdown()
			return ferrors.WrapError(err, ferrors.CategoryServe, "failed to start watcher").Build()
		}
		go func() {
			defer close(watchDone)
			if err := r.watcher.Run(watchCtx); err != nil {
				slog.Warn("watcher stopped", logfields.Error(err))
			}
		}()
	} else {
		close(watchDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-r.server.Errors():
		runErr = ferrors.WrapError(err, ferrors.CategoryServe, "server stopped unexpectedly").
			WithContext("addr", r.server.Addr()).
			Build()
	}

	r.shutdown()
	stopWatch()
	<-watchDone
	return runErr
}

func (r *Runner) shutdown() {
	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.server.Stop(ctx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}
}
