package config

import "time"

// Version is the only supported configuration schema version.
const Version = "1"

// DefaultFileName is the configuration file looked up in the project root.
const DefaultFileName = "sitepipe.yaml"

// Config is the immutable project configuration. It is built once by Load
// (or Default) and shared by reference with every task constructor.
type Config struct {
	Version   string          `yaml:"version"`
	Root      string          `yaml:"-"` // absolute project root, set by Load
	Dirs      DirsConfig      `yaml:"dirs"`
	Templates TemplatesConfig `yaml:"templates"`
	Styles    StylesConfig    `yaml:"styles"`
	Scripts   ScriptsConfig   `yaml:"scripts"`
	Beautify  BeautifyConfig  `yaml:"beautify"`
	Images    ImagesConfig    `yaml:"images"`
	Serve     ServeConfig     `yaml:"serve"`
	Optimize  OptimizeConfig  `yaml:"optimize"`
}

// DirsConfig holds the base directories every route is templated from.
// All paths are relative to the project root.
type DirsConfig struct {
	Source string `yaml:"src"`
	Output string `yaml:"dist"`
	Assets string `yaml:"assets"`
	Vendor string `yaml:"vendor"`
}

// TemplatesConfig configures page rendering.
type TemplatesConfig struct {
	Extension string         `yaml:"extension"`
	Data      map[string]any `yaml:"data,omitempty"` // exposed to every page as .Data
}

// StylesConfig configures the Sass compile and CSS post-processing.
type StylesConfig struct {
	SassBinary string   `yaml:"sass_binary"`
	OutputName string   `yaml:"output_name"`
	Targets    []string `yaml:"targets"` // esbuild engine targets, e.g. chrome100
	SourceMaps bool     `yaml:"source_maps"`
}

// ScriptsConfig names the three entry scripts and the transpile target.
type ScriptsConfig struct {
	App        string `yaml:"app"`
	AppES      string `yaml:"app_es"`
	AppEN      string `yaml:"app_en"`
	Target     string `yaml:"target"`
	SourceMaps bool   `yaml:"source_maps"`
}

// BeautifyConfig configures the in-place script beautifier.
type BeautifyConfig struct {
	Binary     string `yaml:"binary"`
	IndentSize int    `yaml:"indent_size"`
}

// ImagesConfig configures image re-encoding.
type ImagesConfig struct {
	JPEGQuality int `yaml:"jpeg_quality"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	DisableLiveReload bool          `yaml:"disable_live_reload"`
	Debounce          time.Duration `yaml:"debounce"`
	Metrics           bool          `yaml:"metrics"`
}

// OptimizeConfig configures the post-build passes.
type OptimizeConfig struct {
	// UncssIgnore holds regular expressions; selectors matching any of them are always kept.
	UncssIgnore []string       `yaml:"uncss_ignore"`
	Critical    CriticalConfig `yaml:"critical"`
}

// CriticalConfig configures critical-path CSS extraction.
type CriticalConfig struct {
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	IgnoreAtRules  []string `yaml:"ignore_at_rules"`
	IgnorePatterns []string `yaml:"ignore_patterns"` // regular expressions matched against declarations
}
