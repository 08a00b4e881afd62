package transform

import (
	"context"
	"path"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Rename gives every file the base name name, keeping its directory.
func Rename(name string) pipeline.Step {
	return pipeline.PerFile("rename", func(_ context.Context, f pipeline.File) (pipeline.File, error) {
		f.Path = path.Join(path.Dir(f.Path), name)
		return f, nil
	})
}
