package transform

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Viewport is the fixed window critical CSS is computed for.
type Viewport struct {
	Width  int
	Height int
}

// CriticalOptions configures critical-path CSS extraction.
type CriticalOptions struct {
	// Styles loads the built stylesheets rules are taken from.
	Styles   func() ([]pipeline.File, error)
	Viewport Viewport
	// IgnoreAtRules names at-rules (for example "@font-face") never inlined.
	IgnoreAtRules []string
	// IgnoreDecls drops declarations whose "property:value" text matches.
	IgnoreDecls []*regexp.Regexp
}

var criticalBlock = regexp.MustCompile(`(?is)<style data-critical>.*?</style>`)

// Critical computes, for each page, the rules that apply to it within the
// viewport and inlines them as a <style data-critical> block before </head>.
// A block inlined by an earlier run is replaced, so re-running is idempotent.
func Critical(opts CriticalOptions) pipeline.Step {
	m := newCSSMinifier()
	ignoredAt := make(map[string]bool, len(opts.IgnoreAtRules))
	for _, name := range opts.IgnoreAtRules {
		ignoredAt[strings.ToLower(strings.TrimSpace(name))] = true
	}

	return pipeline.StepFunc{StepName: "critical", Fn: func(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
		styles, err := opts.Styles()
		if err != nil {
			return nil, fmt.Errorf("load stylesheets: %w", err)
		}
		var sheet []*cssNode
		for _, s := range styles {
			nodes, err := parseStylesheet(s.Content)
			if err != nil {
				return nil, &pipeline.StepError{Step: "critical", File: s.Source(), Err: err}
			}
			sheet = append(sheet, nodes...)
		}

		sel := criticalSelector{opts: opts, ignoredAt: ignoredAt}
		out := make([]pipeline.File, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			doc, err := html.Parse(bytes.NewReader(criticalBlock.ReplaceAll(f.Content, nil)))
			if err != nil {
				return nil, &pipeline.StepError{Step: "critical", File: f.Source(), Err: err}
			}
			kept := sel.selectRules(sheet, newSelectorMatcher([]*html.Node{doc}, nil))
			kept = append(kept, referencedKeyframes(sheet, kept)...)

			var cssText []byte
			if len(kept) > 0 {
				if cssText, err = renderStylesheet(m, kept); err != nil {
					return nil, &pipeline.StepError{Step: "critical", File: f.Source(), Err: err}
				}
			}
			out = append(out, f.WithContent(inlineCritical(f.Content, cssText)))
		}
		return out, nil
	}}
}

type criticalSelector struct {
	opts      CriticalOptions
	ignoredAt map[string]bool
}

func (s criticalSelector) selectRules(nodes []*cssNode, matcher *selectorMatcher) []*cssNode {
	var kept []*cssNode
	for _, n := range nodes {
		if n.kind != styleRule && s.ignoredAt[strings.ToLower(n.name)] {
			continue
		}
		switch n.kind {
		case styleRule:
			prelude := matcher.keepSelectors(n.prelude)
			if prelude == "" {
				continue
			}
			c := n.clone()
			c.prelude = prelude
			c.decls = s.filterDecls(n.decls)
			c.children = s.selectRules(n.children, matcher)
			if len(c.decls) > 0 || len(c.children) > 0 {
				kept = append(kept, c)
			}
		case atRuleBlock:
			switch n.atName() {
			case "keyframes":
				continue
			case "media":
				if !mediaMatches(n.prelude, s.opts.Viewport) {
					continue
				}
			}
			c := n.clone()
			c.children = s.selectRules(n.children, matcher)
			if len(c.children) > 0 {
				kept = append(kept, c)
			}
		case atDeclBlock:
			if n.atName() == "font-face" {
				kept = append(kept, n)
			}
		}
	}
	return kept
}

func (s criticalSelector) filterDecls(decls []cssDecl) []cssDecl {
	out := make([]cssDecl, 0, len(decls))
next:
	for _, d := range decls {
		text := d.prop + ":" + d.value
		for _, re := range s.opts.IgnoreDecls {
			if re.MatchString(text) {
				continue next
			}
		}
		out = append(out, d)
	}
	return out
}

// referencedKeyframes returns the @keyframes blocks named by an animation
// declaration among kept.
func referencedKeyframes(sheet, kept []*cssNode) []*cssNode {
	names := make(map[string]bool)
	var collect func([]*cssNode)
	collect = func(nodes []*cssNode) {
		for _, n := range nodes {
			for _, d := range n.decls {
				if strings.HasSuffix(d.prop, "animation") || strings.HasSuffix(d.prop, "animation-name") {
					for _, word := range strings.FieldsFunc(d.value, func(r rune) bool { return r == ' ' || r == ',' }) {
						names[word] = true
					}
				}
			}
			collect(n.children)
		}
	}
	collect(kept)

	var out []*cssNode
	for _, n := range sheet {
		if n.kind == atRuleBlock && n.atName() == "keyframes" && names[n.prelude] {
			out = append(out, n)
		}
	}
	return out
}

func inlineCritical(page, cssText []byte) []byte {
	page = criticalBlock.ReplaceAll(page, nil)
	if len(cssText) == 0 {
		return page
	}
	var tag bytes.Buffer
	tag.WriteString("<style data-critical>")
	tag.Write(bytes.ReplaceAll(cssText, []byte("</"), []byte(`<\/`)))
	tag.WriteString("</style>")

	idx := bytes.Index(bytes.ToLower(page), []byte("</head>"))
	if idx < 0 {
		return append(tag.Bytes(), page...)
	}
	out := make([]byte, 0, len(page)+tag.Len())
	out = append(out, page[:idx]...)
	out = append(out, tag.Bytes()...)
	return append(out, page[idx:]...)
}
