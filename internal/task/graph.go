package task

import (
	"context"
	"slices"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// Graph is the immutable table of named runnables.
type Graph struct {
	items map[string]Runnable
	order []string
}

// Entry describes one runnable for listing.
type Entry struct {
	Name    string
	Kind    string // task, parallel, sequential or alias
	Members []string
}

// Get returns the named runnable.
func (g *Graph) Get(name string) (Runnable, bool) {
	r, ok := g.items[name]
	return r, ok
}

// Names returns every name in registration order.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// Entries describes the graph in registration order.
func (g *Graph) Entries() []Entry {
	entries := make([]Entry, 0, len(g.order))
	for _, name := range g.order {
		switch r := g.items[name].(type) {
		case *Aggregate:
			entries = append(entries, Entry{Name: name, Kind: r.Mode().String(), Members: r.Members()})
		case *alias:
			entries = append(entries, Entry{Name: name, Kind: "alias", Members: []string{r.target.Name()}})
		default:
			entries = append(entries, Entry{Name: name, Kind: "task"})
		}
	}
	return entries
}

// Run runs the named runnables one after another, stopping at the first
// failure. Every name is checked before anything runs.
func (g *Graph) Run(ctx context.Context, names ...string) error {
	selected := make([]Runnable, 0, len(names))
	for _, name := range names {
		r, ok := g.items[name]
		if !ok {
			return ferrors.NotFoundError("unknown task").
				WithContext("task", name).
				WithContext("known", g.order).
				Build()
		}
		selected = append(selected, r)
	}
	for _, r := range selected {
		if err := r.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Builder assembles a Graph. Aggregates and aliases may only reference names
// that were added before them, so the graph can contain no cycles. The first
// error is sticky and returned by Build.
type Builder struct {
	g   *Graph
	err error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{items: make(map[string]Runnable)}}
}

// Add registers a runnable under its own name.
func (b *Builder) Add(r Runnable) *Builder {
	if b.err != nil {
		return b
	}
	if r.Name() == "" {
		b.err = ferrors.ValidationError("task name must not be empty").Build()
		return b
	}
	if _, dup := b.g.items[r.Name()]; dup {
		b.err = ferrors.ValidationError("duplicate task name").WithContext("task", r.Name()).Build()
		return b
	}
	b.g.items[r.Name()] = r
	b.g.order = append(b.g.order, r.Name())
	return b
}

// Aggregate registers an aggregate over previously added members.
func (b *Builder) Aggregate(name string, mode Mode, members ...string) *Builder {
	resolved, ok := b.resolve(name, members)
	if !ok {
		return b
	}
	return b.Add(NewAggregate(name, mode, resolved...))
}

// Alias registers name as another name for target.
func (b *Builder) Alias(name, target string) *Builder {
	resolved, ok := b.resolve(name, []string{target})
	if !ok {
		return b
	}
	return b.Add(&alias{name: name, target: resolved[0]})
}

func (b *Builder) resolve(name string, members []string) ([]Runnable, bool) {
	if b.err != nil {
		return nil, false
	}
	resolved := make([]Runnable, 0, len(members))
	for _, m := range members {
		r, ok := b.g.items[m]
		if !ok {
			b.err = ferrors.ValidationError("unresolved task reference").
				WithContext("task", name).
				WithContext("member", m).
				Build()
			return nil, false
		}
		resolved = append(resolved, r)
	}
	return resolved, true
}

// Build returns the graph or the first construction error.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.g, nil
}
