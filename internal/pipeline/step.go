package pipeline

import "context"

// Step transforms a batch of files. Steps may drop, add, rename or rewrite
// files; they must not mutate the slice they were given.
type Step interface {
	Name() string
	Apply(ctx context.Context, files []File) ([]File, error)
}

// StepFunc adapts a function to Step.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, files []File) ([]File, error)
}

// Name implements Step.
func (s StepFunc) Name() string { return s.StepName }

// Apply implements Step.
func (s StepFunc) Apply(ctx context.Context, files []File) ([]File, error) {
	return s.Fn(ctx, files)
}

// PerFile builds a step that transforms files one at a time.
func PerFile(name string, fn func(ctx context.Context, f File) (File, error)) Step {
	return StepFunc{StepName: name, Fn: func(ctx context.Context, files []File) ([]File, error) {
		out := make([]File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			nf, err := fn(ctx, f)
			if err != nil {
				return nil, &StepError{Step: name, File: f.Source(), Err: err}
			}
			out = append(out, nf)
		}
		return out, nil
	}}
}
