package transform

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// statePseudo matches pseudo-elements and user-interaction pseudo-classes.
// They never match a static document, so they are removed before matching.
var statePseudo = regexp.MustCompile(`(?i)::[\w-]+(\([^)]*\))?|:(-(webkit|moz|ms|o)-[\w-]+|before|after|first-line|first-letter|selection|placeholder|focus-within|focus-visible|focus|hover|active|visited|any-link|link|target)\b`)

// selectorMatcher reports whether selectors match any of a set of documents.
type selectorMatcher struct {
	docs   []*html.Node
	ignore []*regexp.Regexp
	cache  map[string]bool
}

func newSelectorMatcher(docs []*html.Node, ignore []*regexp.Regexp) *selectorMatcher {
	return &selectorMatcher{docs: docs, ignore: ignore, cache: make(map[string]bool)}
}

// used reports whether sel is kept: it matches an ignore pattern, cannot be
// evaluated statically, or selects at least one element.
func (m *selectorMatcher) used(sel string) bool {
	if v, ok := m.cache[sel]; ok {
		return v
	}
	v := m.evaluate(sel)
	m.cache[sel] = v
	return v
}

func (m *selectorMatcher) evaluate(sel string) bool {
	for _, re := range m.ignore {
		if re.MatchString(sel) {
			return true
		}
	}
	stripped := strings.TrimSpace(statePseudo.ReplaceAllString(sel, ""))
	if stripped == "" {
		stripped = "*"
	}
	compiled, err := cascadia.Compile(stripped)
	if err != nil {
		return true
	}
	for _, doc := range m.docs {
		if compiled.MatchFirst(doc) != nil {
			return true
		}
	}
	return false
}

// keepSelectors filters a selector list down to the used selectors. It
// returns "" when none is used.
func (m *selectorMatcher) keepSelectors(list string) string {
	var kept []string
	for _, sel := range splitSelectors(list) {
		if m.used(sel) {
			kept = append(kept, sel)
		}
	}
	return strings.Join(kept, ",")
}

func parsePages(pages []pipeline.File) ([]*html.Node, error) {
	docs := make([]*html.Node, 0, len(pages))
	for _, p := range pages {
		doc, err := html.Parse(bytes.NewReader(p.Content))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p.Source(), err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CompilePatterns compiles regular expressions, reporting the first invalid one.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
