package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/routes"
)

// StepError reports which step (and, when known, which file) failed.
type StepError struct {
	Step string
	File string
	Err  error
}

func (e *StepError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("step %s: %s: %v", e.Step, e.File, e.Err)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Read loads every file the route selects under root. A route matching
// nothing returns an empty slice and no error.
func Read(root string, rt routes.Route) ([]File, error) {
	matches, err := rt.Resolve(root)
	if err != nil {
		return nil, err
	}
	base := rt.Base()
	files := make([]File, 0, len(matches))
	for _, rel := range matches {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", rel, err)
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		files = append(files, File{
			Path:    relTo(base, rel),
			Base:    base,
			Content: content,
			Mode:    info.Mode().Perm(),
		})
	}
	return files, nil
}

// Run applies steps in order. The first failing step aborts the run; its
// error is returned as a *StepError unless the step already produced one.
func Run(ctx context.Context, files []File, steps ...Step) ([]File, error) {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := s.Apply(ctx, files)
		if err != nil {
			var se *StepError
			if errors.As(err, &se) {
				return nil, err
			}
			return nil, &StepError{Step: s.Name(), Err: err}
		}
		slog.Debug("Step complete",
			logfields.Step(s.Name()),
			logfields.Files(len(out)),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
		files = out
	}
	return files, nil
}

func relTo(base, rel string) string {
	if base == "" || base == "." {
		return rel
	}
	if r, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(rel)); err == nil {
		return filepath.ToSlash(r)
	}
	return rel
}
