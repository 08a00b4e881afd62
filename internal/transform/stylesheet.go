package transform

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type nodeKind int

const (
	styleRule   nodeKind = iota // selector { declarations }
	atStatement                 // @import ...;
	atDeclBlock                 // @font-face { declarations }
	atRuleBlock                 // @media ... { rules }
	atRawBlock                  // unknown at-rule, body kept verbatim
)

type cssDecl struct {
	prop  string
	value string
}

// cssNode is one rule of a parsed stylesheet. The root of a stylesheet is an
// atRuleBlock with no name.
type cssNode struct {
	kind     nodeKind
	name     string // lower-cased at-rule name including '@'
	prelude  string // selector list or at-rule prelude
	decls    []cssDecl
	children []*cssNode
	raw      string
}

// atName strips '@' and any vendor prefix: "@-webkit-keyframes" → "keyframes".
func (n *cssNode) atName() string {
	name := strings.TrimPrefix(n.name, "@")
	if strings.HasPrefix(name, "-") {
		if i := strings.IndexByte(name[1:], '-'); i >= 0 {
			name = name[i+2:]
		}
	}
	return name
}

func (n *cssNode) clone() *cssNode {
	c := *n
	c.decls = append([]cssDecl(nil), n.decls...)
	c.children = nil
	return &c
}

// parseStylesheet builds a rule tree from src. Malformed declarations and
// rules are skipped the way a browser would skip them.
func parseStylesheet(src []byte) ([]*cssNode, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)
	root := &cssNode{kind: atRuleBlock}
	stack := []*cssNode{root}
	var selector strings.Builder

	for {
		gt, _, data := p.Next()
		top := stack[len(stack)-1]
		switch gt {
		case css.ErrorGrammar:
			if p.HasParseError() {
				if p.Offset() < len(src) {
					continue
				}
				return root.children, nil
			}
			if err := p.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse css: %w", err)
			}
			return root.children, nil
		case css.AtRuleGrammar:
			top.children = append(top.children, &cssNode{kind: atStatement, name: string(data), prelude: joinTokens(p.Values())})
		case css.BeginAtRuleGrammar:
			n := &cssNode{name: string(data), prelude: joinTokens(p.Values())}
			switch n.atName() {
			case "font-face", "page":
				n.kind = atDeclBlock
			case "media", "supports", "document", "keyframes", "layer", "container":
				n.kind = atRuleBlock
			default:
				n.kind = atRawBlock
			}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case css.QualifiedRuleGrammar:
			selector.WriteString(joinTokens(p.Values()))
			selector.WriteByte(',')
		case css.BeginRulesetGrammar:
			selector.WriteString(joinTokens(p.Values()))
			n := &cssNode{kind: styleRule, prelude: selector.String()}
			selector.Reset()
			top.children = append(top.children, n)
			stack = append(stack, n)
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			top.decls = append(top.decls, cssDecl{prop: string(data), value: joinTokens(p.Values())})
		case css.TokenGrammar:
			if top.kind == atRawBlock {
				top.raw += string(data)
			}
		case css.CommentGrammar:
		}
	}
}

func joinTokens(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}

func writeStylesheet(b *strings.Builder, nodes []*cssNode) {
	for _, n := range nodes {
		switch n.kind {
		case styleRule:
			b.WriteString(n.prelude)
			b.WriteByte('{')
			writeDecls(b, n.decls)
			writeStylesheet(b, n.children)
			b.WriteByte('}')
		case atStatement:
			b.WriteString(n.name)
			if n.prelude != "" {
				b.WriteByte(' ')
				b.WriteString(n.prelude)
			}
			b.WriteByte(';')
		default:
			b.WriteString(n.name)
			if n.prelude != "" {
				b.WriteByte(' ')
				b.WriteString(n.prelude)
			}
			b.WriteByte('{')
			switch n.kind {
			case atDeclBlock:
				writeDecls(b, n.decls)
			case atRuleBlock:
				writeStylesheet(b, n.children)
			case atRawBlock:
				b.WriteString(n.raw)
			}
			b.WriteByte('}')
		}
	}
}

func writeDecls(b *strings.Builder, decls []cssDecl) {
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(d.prop)
		b.WriteByte(':')
		b.WriteString(d.value)
	}
	if len(decls) > 0 {
		b.WriteByte(';')
	}
}

// renderStylesheet serialises nodes and minifies the result.
func renderStylesheet(m *minify.M, nodes []*cssNode) ([]byte, error) {
	var b strings.Builder
	writeStylesheet(&b, nodes)
	out, err := m.String("text/css", b.String())
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	return []byte(out), nil
}

func newCSSMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	return m
}

// splitSelectors splits a selector list on top-level commas.
func splitSelectors(list string) []string {
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			if s := strings.TrimSpace(list[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(list[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
