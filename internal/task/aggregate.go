package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Mode selects how an aggregate schedules its members.
type Mode int

const (
	// Parallel starts every member at once.
	Parallel Mode = iota
	// Sequential starts each member after the previous one succeeded.
	Sequential
)

func (m Mode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "parallel"
}

// Aggregate runs a fixed list of members.
//
// In parallel mode a failing member does not cancel its siblings: every
// member runs to completion and all failures are reported together. In
// sequential mode the first failure stops the aggregate.
type Aggregate struct {
	name    string
	mode    Mode
	members []Runnable
}

// NewAggregate creates an aggregate over already-constructed members.
func NewAggregate(name string, mode Mode, members ...Runnable) *Aggregate {
	return &Aggregate{name: name, mode: mode, members: members}
}

// Name implements Runnable.
func (a *Aggregate) Name() string { return a.name }

// Mode returns the aggregate's scheduling mode.
func (a *Aggregate) Mode() Mode { return a.mode }

// Members returns the member names in declaration order.
func (a *Aggregate) Members() []string {
	names := make([]string, 0, len(a.members))
	for _, m := range a.members {
		names = append(names, m.Name())
	}
	return names
}

// Run implements Runnable.
func (a *Aggregate) Run(ctx context.Context) error {
	start := time.Now()
	slog.Info("Aggregate started", logfields.Aggregate(a.name), slog.String("mode", a.mode.String()), slog.Any("members", a.Members()))

	var err error
	if a.mode == Sequential {
		err = a.runSequential(ctx)
	} else {
		err = a.runParallel(ctx)
	}

	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		slog.Error("Aggregate failed", logfields.Aggregate(a.name), logfields.DurationMS(ms), logfields.Error(err))
		return err
	}
	slog.Info("Aggregate complete", logfields.Aggregate(a.name), logfields.DurationMS(ms))
	return nil
}

func (a *Aggregate) runSequential(ctx context.Context) error {
	for _, m := range a.members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregate) runParallel(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, m := range a.members {
		g.Go(func() error {
			if err := m.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return ferrors.TaskError("aggregate members failed").WithCause(errors.Join(errs...)).
		WithContext("aggregate", a.name).
		WithContext("failed", len(errs)).
		Build()
}

// alias runs another runnable under a second name.
type alias struct {
	name   string
	target Runnable
}

func (a *alias) Name() string                  { return a.name }
func (a *alias) Run(ctx context.Context) error { return a.target.Run(ctx) }
