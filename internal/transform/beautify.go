package transform

import (
	"context"
	"strconv"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Beautify reformats scripts with js-beautify using the given indent size.
func Beautify(tool Tool, indentSize int) pipeline.Step {
	return pipeline.PerFile("beautify", func(ctx context.Context, f pipeline.File) (pipeline.File, error) {
		out, err := tool.Run(ctx, f.Content, "--indent-size", strconv.Itoa(indentSize), "-f", "-")
		if err != nil {
			return f, err
		}
		return f.WithContent(out), nil
	})
}
