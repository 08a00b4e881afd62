package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

// Validate checks the invariants the task graph relies on: relative, non-overlapping
// base directories, an asset root inside the output root, and well-formed options.
func Validate(cfg *Config) error {
	dirs := map[string]string{
		"dirs.src":    cfg.Dirs.Source,
		"dirs.dist":   cfg.Dirs.Output,
		"dirs.assets": cfg.Dirs.Assets,
		"dirs.vendor": cfg.Dirs.Vendor,
	}
	for field, dir := range dirs {
		if dir == "" {
			return invalid(field, "must not be empty")
		}
		if filepath.IsAbs(dir) {
			return invalid(field, "must be relative to the project root")
		}
		if escapes(dir) {
			return invalid(field, "must not escape the project root")
		}
	}

	src := filepath.Clean(cfg.Dirs.Source)
	out := filepath.Clean(cfg.Dirs.Output)
	if src == out || within(out, src) || within(src, out) {
		return invalid("dirs.dist", "source and output roots must not overlap")
	}
	if !within(filepath.Clean(cfg.Dirs.Assets), out) {
		return invalid("dirs.assets", "must be inside dirs.dist")
	}

	if !strings.HasPrefix(cfg.Templates.Extension, ".") {
		return invalid("templates.extension", "must start with a dot")
	}
	if strings.ContainsAny(cfg.Styles.OutputName, `/\`) {
		return invalid("styles.output_name", "must be a bare file name")
	}
	for field, name := range map[string]string{"scripts.app": cfg.Scripts.App, "scripts.app_es": cfg.Scripts.AppES, "scripts.app_en": cfg.Scripts.AppEN} {
		if strings.ContainsAny(name, `/\*?[`) {
			return invalid(field, "must be a bare file name")
		}
	}
	if cfg.Beautify.IndentSize < 1 {
		return invalid("beautify.indent_size", "must be positive")
	}
	if q := cfg.Images.JPEGQuality; q < 1 || q > 100 {
		return invalid("images.jpeg_quality", "must be between 1 and 100")
	}
	if p := cfg.Serve.Port; p < 0 || p > 65535 {
		return invalid("serve.port", "must be between 0 and 65535")
	}
	if cfg.Serve.Debounce < 0 {
		return invalid("serve.debounce", "must not be negative")
	}
	if cfg.Optimize.Critical.Width <= 0 || cfg.Optimize.Critical.Height <= 0 {
		return invalid("optimize.critical", "viewport width and height must be positive")
	}
	for _, pattern := range cfg.Optimize.UncssIgnore {
		if _, err := regexp.Compile(pattern); err != nil {
			return invalid("optimize.uncss_ignore", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
		}
	}
	for _, pattern := range cfg.Optimize.Critical.IgnorePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return invalid("optimize.critical.ignore_patterns", fmt.Sprintf("invalid pattern %q: %v", pattern, err))
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return ferrors.ConfigError(field + " " + reason).WithContext("field", field).Build()
}

func escapes(dir string) bool {
	clean := filepath.ToSlash(filepath.Clean(dir))
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// within reports whether child is a strict sub-path of parent.
func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return !escapes(rel)
}
