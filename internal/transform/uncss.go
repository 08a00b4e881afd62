package transform

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// UncssOptions configures unused-rule removal.
type UncssOptions struct {
	// Pages loads the rendered markup that decides which selectors are used.
	Pages func() ([]pipeline.File, error)
	// Ignore lists selectors that are always kept.
	Ignore []*regexp.Regexp
}

// Uncss removes style rules whose selectors match no element in any page and
// minifies what remains. Selectors matching an ignore pattern, or that cannot
// be evaluated against static markup, are kept. @font-face, @keyframes and
// other non-selector at-rules are kept verbatim.
func Uncss(opts UncssOptions) pipeline.Step {
	m := newCSSMinifier()
	return pipeline.StepFunc{StepName: "uncss", Fn: func(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
		pages, err := opts.Pages()
		if err != nil {
			return nil, fmt.Errorf("load pages: %w", err)
		}
		if len(pages) == 0 {
			slog.Warn("No rendered pages found; every selector counts as unused", logfields.Step("uncss"))
		}
		docs, err := parsePages(pages)
		if err != nil {
			return nil, err
		}
		matcher := newSelectorMatcher(docs, opts.Ignore)

		out := make([]pipeline.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			nodes, err := parseStylesheet(f.Content)
			if err != nil {
				return nil, &pipeline.StepError{Step: "uncss", File: f.Source(), Err: err}
			}
			kept := pruneUnused(nodes, matcher)
			content, err := renderStylesheet(m, kept)
			if err != nil {
				return nil, &pipeline.StepError{Step: "uncss", File: f.Source(), Err: err}
			}
			slog.Debug("Removed unused rules", logfields.File(f.Source()),
				slog.Int("bytes_before", len(f.Content)), slog.Int("bytes_after", len(content)))
			out = append(out, f.WithContent(content))
		}
		return out, nil
	}}
}

func pruneUnused(nodes []*cssNode, matcher *selectorMatcher) []*cssNode {
	var kept []*cssNode
	for _, n := range nodes {
		switch n.kind {
		case styleRule:
			sel := matcher.keepSelectors(n.prelude)
			if sel == "" {
				continue
			}
			c := n.clone()
			c.prelude = sel
			c.children = pruneUnused(n.children, matcher)
			kept = append(kept, c)
		case atRuleBlock:
			if n.atName() == "keyframes" {
				kept = append(kept, n)
				continue
			}
			c := n.clone()
			c.children = pruneUnused(n.children, matcher)
			if len(c.children) > 0 {
				kept = append(kept, c)
			}
		default:
			kept = append(kept, n)
		}
	}
	return kept
}
