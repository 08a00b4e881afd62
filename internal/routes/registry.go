// Package routes maps logical resource classes (templates, styles, scripts,
// build outputs) to source globs and destination directories.
package routes

import (
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// Route names. Task names reuse them where a task owns a single route.
const (
	Templates        = "templates"
	TemplateIncludes = "template_includes"
	Styles           = "styles"
	StyleIncludes    = "style_includes"
	Scripts          = "scripts"
	ScriptsES        = "scriptses"
	ScriptsEN        = "scriptsen"
	Beautify         = "beautify"
	BeautifyES       = "beautifyes"
	BeautifyEN       = "beautifyen"
	Images           = "images"
	Icons            = "icons"
	CSSOutput        = "css_output"
	HTMLOutput       = "html_output"
)

// Registry is the immutable name → Route table built once at startup.
type Registry struct {
	routes map[string]Route
	names  []string
}

// NewRegistry templates every route from the configured base directories and
// checks that sources stay under their root and destinations under the output root.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	src := slash(cfg.Dirs.Source)
	dist := slash(cfg.Dirs.Output)
	assets := slash(cfg.Dirs.Assets)
	vendor := slash(cfg.Dirs.Vendor)
	ext := cfg.Templates.Extension

	templates := src + "/templates"
	styles := src + "/styles"
	scripts := src + "/scripts"

	defs := []struct {
		route Route
		root  string // every source must live under this root
	}{
		{Route{Name: Templates, Sources: []string{templates + "/**/*" + ext}, Excludes: []string{templates + "/_includes/**"}, Dest: dist}, src},
		{Route{Name: TemplateIncludes, Sources: []string{templates + "/_includes/**/*" + ext}}, src},
		{Route{Name: Styles, Sources: []string{styles + "/*.scss"}, Dest: assets + "/css"}, src},
		{Route{Name: StyleIncludes, Sources: []string{styles + "/_includes/*.scss"}}, src},
		{Route{Name: Scripts, Sources: []string{scripts + "/" + cfg.Scripts.App}, Dest: assets + "/js"}, src},
		{Route{Name: ScriptsES, Sources: []string{scripts + "/" + cfg.Scripts.AppES}, Dest: assets + "/js"}, src},
		{Route{Name: ScriptsEN, Sources: []string{scripts + "/" + cfg.Scripts.AppEN}, Dest: assets + "/js"}, src},
		{Route{Name: Beautify, Sources: []string{scripts + "/" + cfg.Scripts.App}, Dest: scripts, InPlace: true}, src},
		{Route{Name: BeautifyES, Sources: []string{scripts + "/" + cfg.Scripts.AppES}, Dest: scripts, InPlace: true}, src},
		{Route{Name: BeautifyEN, Sources: []string{scripts + "/" + cfg.Scripts.AppEN}, Dest: scripts, InPlace: true}, src},
		{Route{Name: Images, Sources: []string{src + "/images/*"}, Dest: assets + "/files/img"}, src},
		{Route{Name: Icons, Sources: []string{vendor + "/font-awesome/fonts/*.*"}, Dest: assets + "/files/fonts"}, vendor},
		{Route{Name: CSSOutput, Sources: []string{assets + "/css/*.css"}, Dest: assets + "/css"}, dist},
		{Route{Name: HTMLOutput, Sources: []string{dist + "/**/*.html"}, Dest: dist}, dist},
	}

	r := &Registry{routes: make(map[string]Route, len(defs))}
	for _, d := range defs {
		if err := checkRoute(d.route, d.root, dist, src); err != nil {
			return nil, err
		}
		r.routes[d.route.Name] = d.route
		r.names = append(r.names, d.route.Name)
	}
	return r, nil
}

// Route returns the named route.
func (r *Registry) Route(name string) (Route, bool) {
	rt, ok := r.routes[name]
	return rt, ok
}

// MustRoute returns the named route and panics when it is not registered.
// Only use with the package's route name constants.
func (r *Registry) MustRoute(name string) Route {
	rt, ok := r.routes[name]
	if !ok {
		panic("routes: unknown route " + name)
	}
	return rt
}

// Names returns route names in definition order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

func checkRoute(rt Route, root, dist, src string) error {
	for _, g := range append(slices.Clone(rt.Sources), rt.Excludes...) {
		if !under(g, root) {
			return ferrors.ConfigError("route source escapes its root").
				WithContext("route", rt.Name).WithContext("glob", g).WithContext("root", root).Build()
		}
	}
	if rt.Dest == "" {
		return nil
	}
	destRoot := dist
	if rt.InPlace {
		destRoot = src
	}
	if rt.Dest != destRoot && !under(rt.Dest, destRoot) {
		return ferrors.ConfigError("route destination escapes the output root").
			WithContext("route", rt.Name).WithContext("dest", rt.Dest).Build()
	}
	return nil
}

func under(p, root string) bool {
	p = path.Clean(p)
	root = path.Clean(root)
	return strings.HasPrefix(p, root+"/")
}

func slash(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
