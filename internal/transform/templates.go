package transform

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// TemplateOptions configures page rendering.
type TemplateOptions struct {
	// Partials loads the shared templates pages may include. Each partial is
	// registered under its path relative to the templates directory, for
	// example "_includes/head.tmpl".
	Partials func() ([]pipeline.File, error)
	// PartialPrefix is prepended to each partial's path when it is registered.
	PartialPrefix string
	// Data is exposed to every page as .Data.
	Data map[string]any
}

// PageContext is the value every page template executes against.
type PageContext struct {
	// Path is the output path of the page relative to the site root.
	Path string
	// Root is the relative prefix from the page back to the site root ("" or "../").
	Root string
	Data map[string]any
}

// Templates renders each page with html/template and returns it with an
// .html extension. Sprig functions and a goldmark-backed "markdown" function
// are available to every template.
func Templates(opts TemplateOptions) pipeline.Step {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	funcs := sprig.HtmlFuncMap()
	funcs["markdown"] = func(src string) (template.HTML, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil //nolint:gosec // markdown comes from the project's own sources
	}

	return pipeline.StepFunc{StepName: "templates", Fn: func(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
		base := template.New("").Funcs(funcs).Option("missingkey=error")
		if opts.Partials != nil {
			partials, err := opts.Partials()
			if err != nil {
				return nil, fmt.Errorf("load partials: %w", err)
			}
			for _, p := range partials {
				name := path.Join(opts.PartialPrefix, p.Path)
				if _, err := base.New(name).Parse(string(p.Content)); err != nil {
					return nil, &pipeline.StepError{Step: "templates", File: p.Source(), Err: err}
				}
			}
		}

		out := make([]pipeline.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := renderPage(base, f, opts.Data)
			if err != nil {
				return nil, &pipeline.StepError{Step: "templates", File: f.Source(), Err: err}
			}
			out = append(out, page)
		}
		return out, nil
	}}
}

func renderPage(base *template.Template, f pipeline.File, data map[string]any) (pipeline.File, error) {
	t, err := base.Clone()
	if err != nil {
		return f, err
	}
	if _, err := t.New(f.Path).Parse(string(f.Content)); err != nil {
		return f, err
	}

	page := f.WithExt(".html")
	pc := PageContext{
		Path: page.Path,
		Root: strings.Repeat("../", strings.Count(page.Path, "/")),
		Data: data,
	}
	if pc.Data == nil {
		pc.Data = map[string]any{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, f.Path, pc); err != nil {
		return f, err
	}
	return page.WithContent(buf.Bytes()), nil
}
