package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

var jsTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseJSTarget maps a target name such as "es2015" to its esbuild value.
func ParseJSTarget(s string) (api.Target, error) {
	t, ok := jsTargets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown script target %q", s)
	}
	return t, nil
}

// ParseEngines maps browser targets such as "chrome120" or "safari16.4" to
// esbuild engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		i := strings.IndexAny(t, "0123456789")
		if i <= 0 {
			return nil, fmt.Errorf("invalid browser target %q", t)
		}
		name, ok := engineNames[t[:i]]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in target %q", t[:i], t)
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}
	return engines, nil
}

// ScriptOptions configures script transpilation.
type ScriptOptions struct {
	Target     api.Target
	SourceMaps bool
}

// Scripts transpiles each script down to the configured target and minifies
// it. Source maps, when enabled, are inlined.
func Scripts(opts ScriptOptions) pipeline.Step {
	return pipeline.PerFile("scripts", func(_ context.Context, f pipeline.File) (pipeline.File, error) {
		sourcemap := api.SourceMapNone
		if opts.SourceMaps {
			sourcemap = api.SourceMapInline
		}
		res := api.Transform(string(f.Content), api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            opts.Target,
			Sourcefile:        f.Path,
			Sourcemap:         sourcemap,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
		})
		if len(res.Errors) > 0 {
			return f, esbuildError(res.Errors)
		}
		return f.WithContent(res.Code), nil
	})
}

// CSSOptions configures CSS post-processing.
type CSSOptions struct {
	// Root is the absolute project root. Relative @imports resolve against
	// the directory the stylesheet was read from.
	Root       string
	Engines    []api.Engine
	SourceMaps bool
}

// CSS inlines local @imports, lowers and prefixes the stylesheet for the
// configured browser engines and minifies it. url() references stay
// external.
func CSS(opts CSSOptions) pipeline.Step {
	return pipeline.PerFile("css", func(_ context.Context, f pipeline.File) (pipeline.File, error) {
		sourcemap := api.SourceMapNone
		if opts.SourceMaps {
			sourcemap = api.SourceMapInline
		}
		res := api.Build(api.BuildOptions{
			Stdin: &api.StdinOptions{
				Contents:   string(f.Content),
				ResolveDir: filepath.Join(opts.Root, filepath.FromSlash(f.Base)),
				Sourcefile: f.Path,
				Loader:     api.LoaderCSS,
			},
			Bundle:           true,
			Write:            false,
			LogLevel:         api.LogLevelSilent,
			Engines:          opts.Engines,
			Sourcemap:        sourcemap,
			MinifyWhitespace: true,
			MinifySyntax:     true,
			Plugins:          []api.Plugin{externalAssets},
		})
		if len(res.Errors) > 0 {
			return f, esbuildError(res.Errors)
		}
		if len(res.OutputFiles) != 1 {
			return f, fmt.Errorf("expected one css output, got %d", len(res.OutputFiles))
		}
		return f.WithContent(res.OutputFiles[0].Contents), nil
	})
}

// externalAssets keeps every url() reference out of the bundle. Only
// @import rules are inlined.
var externalAssets = api.Plugin{
	Name: "external-assets",
	Setup: func(build api.PluginBuild) {
		build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
			if args.Kind != api.ResolveCSSURLToken {
				return api.OnResolveResult{}, nil
			}
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		})
	},
}

func esbuildError(msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	errs := make([]error, 0, len(formatted))
	for _, m := range formatted {
		errs = append(errs, errors.New(strings.TrimSpace(m)))
	}
	return errors.Join(errs...)
}
