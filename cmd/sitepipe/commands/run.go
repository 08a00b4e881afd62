package commands

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/site"
)

// RunCmd implements the 'run' command. It is also what a bare
// `sitepipe [task...]` invokes.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks or aggregates to run in order (default: default)"`
}

// Run executes the command.
func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := root.LoadSite()
	if err != nil {
		return err
	}

	tasks := r.Tasks
	if len(tasks) == 0 {
		tasks = []string{site.Default}
	}
	start := time.Now()
	err = s.Run(ctx, tasks...)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		slog.Info("Interrupted", "tasks", tasks)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("Finished", "tasks", tasks, logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return nil
}
