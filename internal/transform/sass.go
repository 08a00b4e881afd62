package transform

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// SassOptions configures the Sass compile.
type SassOptions struct {
	Tool Tool
	// Root is the absolute project root; load paths are resolved against it.
	Root string
	// LoadPaths are extra directories, relative to Root, searched for imports.
	LoadPaths  []string
	SourceMaps bool
}

// Sass compiles each stylesheet with the external sass binary into
// compressed CSS. Partials (files whose name starts with "_") are skipped.
// A missing import fails the step.
func Sass(opts SassOptions) pipeline.Step {
	return pipeline.StepFunc{StepName: "sass", Fn: func(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
		out := make([]pipeline.File, 0, len(files))
		for _, f := range files {
			if strings.HasPrefix(path.Base(f.Path), "_") {
				continue
			}
			args := []string{"--stdin", "--style=compressed"}
			if opts.SourceMaps {
				args = append(args, "--embed-source-map")
			} else {
				args = append(args, "--no-source-map")
			}
			args = append(args, "--load-path="+filepath.Join(opts.Root, filepath.FromSlash(path.Dir(f.Source()))))
			for _, lp := range opts.LoadPaths {
				args = append(args, "--load-path="+filepath.Join(opts.Root, filepath.FromSlash(lp)))
			}

			css, err := opts.Tool.Run(ctx, f.Content, args...)
			if err != nil {
				return nil, &pipeline.StepError{Step: "sass", File: f.Source(), Err: err}
			}
			out = append(out, f.WithExt(".css").WithContent(css))
		}
		return out, nil
	}}
}
