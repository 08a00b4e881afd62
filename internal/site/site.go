package site

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/routes"
	"git.home.luguber.info/inful/sitepipe/internal/serve"
	"git.home.luguber.info/inful/sitepipe/internal/task"
	"git.home.luguber.info/inful/sitepipe/internal/transform"
	"git.home.luguber.info/inful/sitepipe/internal/watch"
)

// Task and aggregate names that are not route names.
const (
	Serve    = "serve"
	Uncss    = "uncss"
	Critical = "critical"
	Dev      = "dev"
	Build    = "build"
	Optimize = "optimize"
	Default  = "default"
)

// Site owns the task graph for one project.
type Site struct {
	cfg      *config.Config
	routes   *routes.Registry
	hub      *serve.Hub
	recorder metrics.Recorder
	metrics  http.Handler
	sass     transform.Tool
	beautify transform.Tool
	graph    *task.Graph
}

// Option configures a Site.
type Option func(*Site)

// WithPrometheus records task metrics on reg and serves them on /metrics.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(s *Site) {
		s.recorder = metrics.NewPrometheusRecorder(reg)
		s.metrics = metrics.HTTPHandler(reg)
	}
}

// WithSass replaces the sass binary.
func WithSass(t transform.Tool) Option {
	return func(s *Site) { s.sass = t }
}

// WithBeautifier replaces the js-beautify binary.
func WithBeautifier(t transform.Tool) Option {
	return func(s *Site) { s.beautify = t }
}

// New builds the task graph for cfg. cfg.Root must be set (config.Load does this).
func New(cfg *config.Config, opts ...Option) (*Site, error) {
	if cfg.Root == "" {
		return nil, ferrors.ConfigError("project root is not set").Build()
	}
	reg, err := routes.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	s := &Site{
		cfg:      cfg,
		routes:   reg,
		recorder: metrics.NoopRecorder{},
		sass:     transform.Binary{Name: cfg.Styles.SassBinary, Dir: cfg.Root},
		beautify: transform.Binary{Name: cfg.Beautify.Binary, Dir: cfg.Root},
	}
	for _, opt := range opts {
		opt(s)
	}
	if !cfg.Serve.DisableLiveReload {
		s.hub = serve.NewHub(s.recorder)
	}
	if s.graph, err = s.buildGraph(); err != nil {
		return nil, err
	}
	return s, nil
}

// Graph returns the task graph.
func (s *Site) Graph() *task.Graph { return s.graph }

// Routes returns the route registry.
func (s *Site) Routes() *routes.Registry { return s.routes }

// Run runs the named tasks in order; no names means "default".
func (s *Site) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = []string{Default}
	}
	return s.graph.Run(ctx, names...)
}

func (s *Site) buildGraph() (*task.Graph, error) {
	root := s.cfg.Root

	scriptTarget, err := transform.ParseJSTarget(s.cfg.Scripts.Target)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid script target").
			WithContext("field", "scripts.target").Build()
	}
	engines, err := transform.ParseEngines(s.cfg.Styles.Targets)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid style targets").
			WithContext("field", "styles.targets").Build()
	}
	uncssIgnore, err := transform.CompilePatterns(s.cfg.Optimize.UncssIgnore)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid uncss ignore pattern").Build()
	}
	criticalIgnore, err := transform.CompilePatterns(s.cfg.Optimize.Critical.IgnorePatterns)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid critical ignore pattern").Build()
	}

	styleIncludes := s.routes.MustRoute(routes.StyleIncludes)
	scripts := transform.Scripts(transform.ScriptOptions{Target: scriptTarget, SourceMaps: s.cfg.Scripts.SourceMaps})
	beautify := transform.Beautify(s.beautify, s.cfg.Beautify.IndentSize)

	templates := s.newTask(routes.Templates, transform.Templates(transform.TemplateOptions{
		Partials:      s.loader(routes.TemplateIncludes),
		PartialPrefix: "_includes",
		Data:          s.cfg.Templates.Data,
	}))
	styles := s.newTask(routes.Styles,
		transform.Sass(transform.SassOptions{
			Tool:       s.sass,
			Root:       root,
			LoadPaths:  []string{styleIncludes.Base(), s.cfg.Dirs.Vendor},
			SourceMaps: s.cfg.Styles.SourceMaps,
		}),
		transform.CSS(transform.CSSOptions{Root: root, Engines: engines, SourceMaps: s.cfg.Styles.SourceMaps}),
		transform.Rename(s.cfg.Styles.OutputName),
	)
	scriptsApp := s.newTask(routes.Scripts, scripts)
	scriptsES := s.newTask(routes.ScriptsES, scripts)
	scriptsEN := s.newTask(routes.ScriptsEN, scripts)
	beautifyApp := s.newTask(routes.Beautify, beautify)
	beautifyES := s.newTask(routes.BeautifyES, beautify)
	beautifyEN := s.newTask(routes.BeautifyEN, beautify)
	images := s.newTask(routes.Images, transform.Images(transform.ImageOptions{JPEGQuality: s.cfg.Images.JPEGQuality}))
	icons := s.newTask(routes.Icons)

	uncss := task.New(Uncss, root, s.routes.MustRoute(routes.CSSOutput),
		task.WithSteps(transform.Uncss(transform.UncssOptions{
			Pages:  s.loader(routes.HTMLOutput),
			Ignore: uncssIgnore,
		})),
		task.WithRecorder(s.recorder),
	)
	critical := task.New(Critical, root, s.routes.MustRoute(routes.HTMLOutput),
		task.WithSteps(transform.Critical(transform.CriticalOptions{
			Styles: s.loader(routes.CSSOutput),
			Viewport: transform.Viewport{
				Width:  s.cfg.Optimize.Critical.Width,
				Height: s.cfg.Optimize.Critical.Height,
			},
			IgnoreAtRules: s.cfg.Optimize.Critical.IgnoreAtRules,
			IgnoreDecls:   criticalIgnore,
		})),
		task.WithDest(s.cfg.Dirs.Output),
		task.WithRecorder(s.recorder),
	)

	watcher := watch.New(root, []watch.Binding{
		{
			Routes: []routes.Route{s.routes.MustRoute(routes.Styles), styleIncludes},
			Tasks:  []task.Runnable{styles},
		},
		{
			Routes: []routes.Route{s.routes.MustRoute(routes.Templates), s.routes.MustRoute(routes.TemplateIncludes)},
			Tasks:  []task.Runnable{templates},
		},
		{
			Routes: []routes.Route{s.routes.MustRoute(routes.Scripts)},
			Tasks:  []task.Runnable{scriptsApp, beautifyApp, beautifyES, beautifyEN},
		},
	}, watch.WithDebounce(s.cfg.Serve.Debounce), watch.WithRecorder(s.recorder))

	server := serve.NewServer(serve.Options{
		Addr:       net.JoinHostPort(s.cfg.Serve.Host, strconv.Itoa(s.cfg.Serve.Port)),
		Dir:        filepath.Join(root, filepath.FromSlash(s.cfg.Dirs.Output)),
		LiveReload: s.hub != nil,
		Metrics:    s.metrics,
	}, s.hub)

	return task.NewBuilder().
		Add(templates).
		Add(styles).
		Add(scriptsApp).
		Add(scriptsES).
		Add(scriptsEN).
		Add(beautifyApp).
		Add(beautifyES).
		Add(beautifyEN).
		Add(images).
		Add(icons).
		Add(serve.NewRunner(Serve, server, watcher)).
		Add(uncss).
		Add(critical).
		Aggregate(Dev, task.Parallel,
			routes.Templates, routes.Styles, routes.Scripts, routes.ScriptsES, routes.ScriptsEN,
			routes.Images, routes.Icons, Serve).
		Aggregate(Build, task.Parallel,
			routes.Templates, routes.Styles, routes.Scripts, routes.ScriptsES, routes.ScriptsEN,
			routes.Images, routes.Icons).
		Aggregate(Optimize, task.Sequential, Uncss, Critical, routes.Images).
		Alias(Default, Dev).
		Build()
}

// newTask creates the task owning the route of the same name. Outputs under
// the output root are reported to the live reload hub.
func (s *Site) newTask(name string, steps ...pipeline.Step) *task.Task {
	rt := s.routes.MustRoute(name)
	opts := []task.Option{task.WithSteps(steps...), task.WithRecorder(s.recorder)}
	if s.hub != nil && !rt.InPlace {
		opts = append(opts, task.WithNotifier(s.hub))
	}
	return task.New(name, s.cfg.Root, rt, opts...)
}

// loader reads a route's files at run time, after earlier tasks produced them.
func (s *Site) loader(name string) func() ([]pipeline.File, error) {
	rt := s.routes.MustRoute(name)
	return func() ([]pipeline.File, error) {
		return pipeline.Read(s.cfg.Root, rt)
	}
}
