package config

import "time"

// Default returns the conventional src/ → dist/ configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = Version
	}

	d := &cfg.Dirs
	d.Source = orDefault(d.Source, "src")
	d.Output = orDefault(d.Output, "dist")
	d.Assets = orDefault(d.Assets, d.Output+"/assets")
	d.Vendor = orDefault(d.Vendor, "node_modules")

	cfg.Templates.Extension = orDefault(cfg.Templates.Extension, ".tmpl")

	s := &cfg.Styles
	s.SassBinary = orDefault(s.SassBinary, "sass")
	s.OutputName = orDefault(s.OutputName, "main.css")
	if len(s.Targets) == 0 {
		// Roughly "last 3 versions" of the evergreen browsers.
		s.Targets = []string{"chrome120", "edge120", "firefox120", "safari16"}
	}

	sc := &cfg.Scripts
	sc.App = orDefault(sc.App, "app.js")
	sc.AppES = orDefault(sc.AppES, "appes.js")
	sc.AppEN = orDefault(sc.AppEN, "appen.js")
	sc.Target = orDefault(sc.Target, "es2015")

	cfg.Beautify.Binary = orDefault(cfg.Beautify.Binary, "js-beautify")
	if cfg.Beautify.IndentSize == 0 {
		cfg.Beautify.IndentSize = 4
	}

	if cfg.Images.JPEGQuality == 0 {
		cfg.Images.JPEGQuality = 85
	}

	sv := &cfg.Serve
	sv.Host = orDefault(sv.Host, "localhost")
	if sv.Port == 0 {
		sv.Port = 3000
	}
	if sv.Debounce == 0 {
		sv.Debounce = 300 * time.Millisecond
	}

	o := &cfg.Optimize
	if o.UncssIgnore == nil {
		o.UncssIgnore = []string{`:`}
	}
	c := &o.Critical
	if c.Width == 0 {
		c.Width = 1300
	}
	if c.Height == 0 {
		c.Height = 900
	}
	if c.IgnoreAtRules == nil {
		c.IgnoreAtRules = []string{"@font-face"}
	}
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = []string{`url\(`}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
