package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/routes"
)

// Task reads the files a route selects, applies its steps in order and
// writes the result to the destination only when every step succeeded.
type Task struct {
	name     string
	root     string
	route    routes.Route
	dest     string
	steps    []pipeline.Step
	notifier Notifier
	recorder metrics.Recorder
}

// Option configures a Task.
type Option func(*Task)

// WithSteps appends pipeline steps.
func WithSteps(steps ...pipeline.Step) Option {
	return func(t *Task) { t.steps = append(t.steps, steps...) }
}

// WithDest overrides the route's destination directory.
func WithDest(dest string) Option {
	return func(t *Task) { t.dest = dest }
}

// WithNotifier reports changed output paths after a successful write.
func WithNotifier(n Notifier) Option {
	return func(t *Task) { t.notifier = n }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(t *Task) {
		if r != nil {
			t.recorder = r
		}
	}
}

// New creates a task named name over route, rooted at the project root.
// With no steps the task copies its files unchanged.
func New(name, root string, route routes.Route, opts ...Option) *Task {
	t := &Task{
		name:     name,
		root:     root,
		route:    route,
		dest:     route.Dest,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements Runnable.
func (t *Task) Name() string { return t.name }

// Route returns the route the task reads.
func (t *Task) Route() routes.Route { return t.route }

// Run implements Runnable.
func (t *Task) Run(ctx context.Context) error {
	start := time.Now()
	log := slog.With(logfields.Task(t.name), logfields.RunID(uuid.NewString()))
	log.Debug("Task started", logfields.Route(t.route.Name), logfields.Dest(t.dest))

	result, written, err := t.run(ctx, log)
	elapsed := time.Since(start)
	t.recorder.ObserveTaskDuration(t.name, elapsed)
	t.recorder.IncTaskResult(t.name, result)
	t.recorder.ObserveFilesWritten(t.name, written)

	ms := float64(elapsed.Microseconds()) / 1000
	if err != nil {
		log.Error("Task failed", logfields.DurationMS(ms), logfields.Error(err))
		return err
	}
	log.Info("Task complete", logfields.Files(written), logfields.DurationMS(ms))
	return nil
}

func (t *Task) run(ctx context.Context, log *slog.Logger) (metrics.ResultLabel, int, error) {
	files, err := pipeline.Read(t.root, t.route)
	if err != nil {
		return metrics.ResultFailed, 0, ferrors.FileSystemError("failed to read sources").WithCause(err).
			WithContext("task", t.name).
			WithContext("route", t.route.Name).
			Build()
	}
	if len(files) == 0 {
		log.Warn("No source files matched", logfields.Route(t.route.Name), slog.Any("globs", t.route.Sources))
		return metrics.ResultEmpty, 0, nil
	}

	out, err := pipeline.Run(ctx, files, t.steps...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return metrics.ResultCanceled, 0, err
		}
		b := ferrors.TransformError("transform failed").WithCause(err).WithContext("task", t.name)
		var se *pipeline.StepError
		if errors.As(err, &se) {
			b = b.WithContext("step", se.Step)
			if se.File != "" {
				b = b.WithContext("file", se.File)
			}
		}
		return metrics.ResultFailed, 0, b.Build()
	}

	changed, err := pipeline.Write(t.root, t.dest, out)
	if err != nil {
		return metrics.ResultFailed, len(changed), ferrors.FileSystemError("failed to write outputs").WithCause(err).
			WithContext("task", t.name).
			WithContext("dest", t.dest).
			Build()
	}
	if len(changed) > 0 && t.notifier != nil {
		t.notifier.Notify(changed)
	}
	return metrics.ResultSuccess, len(changed), nil
}
