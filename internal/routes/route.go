package routes

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Route is one logical resource class. Globs and Dest are slash-separated and
// relative to the project root.
type Route struct {
	Name     string
	Sources  []string
	Excludes []string
	Dest     string
	// InPlace marks routes whose destination is a source directory (beautify).
	InPlace bool
}

// Base returns the longest static directory prefix shared by the route's
// sources. Output paths keep the part of the source path below it.
func (r Route) Base() string {
	var base string
	for i, g := range r.Sources {
		b, _ := doublestar.SplitPattern(g)
		if !hasMeta(g) {
			b = path.Dir(g)
		}
		if i == 0 {
			base = b
			continue
		}
		base = commonDir(base, b)
	}
	if base == "" {
		return "."
	}
	return base
}

// Resolve expands the route's sources under root and removes excluded files.
// The result is sorted, de-duplicated and slash-relative to root. A route that
// matches nothing yields an empty slice and no error.
func (r Route) Resolve(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range r.Sources {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("route %s: glob %q: %w", r.Name, pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || r.excluded(m) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

// Matches reports whether rel (slash- or OS-separated, relative to the project
// root) is selected by the route.
func (r Route) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if r.excluded(rel) {
		return false
	}
	for _, pattern := range r.Sources {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (r Route) excluded(rel string) bool {
	for _, pattern := range r.Excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '{', '\\':
			return true
		}
	}
	return false
}

func commonDir(a, b string) string {
	for a != b {
		if len(a) > len(b) {
			a = path.Dir(a)
		} else {
			b = path.Dir(b)
		}
		if a == "." || b == "." {
			return "."
		}
	}
	return a
}
