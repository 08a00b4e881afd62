package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
)

func TestDefaultMatchesConventionalLayout(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "src", cfg.Dirs.Source)
	assert.Equal(t, "dist", cfg.Dirs.Output)
	assert.Equal(t, "dist/assets", cfg.Dirs.Assets)
	assert.Equal(t, "node_modules", cfg.Dirs.Vendor)
	assert.Equal(t, "main.css", cfg.Styles.OutputName)
	assert.Equal(t, []string{"app.js", "appes.js", "appen.js"}, []string{cfg.Scripts.App, cfg.Scripts.AppES, cfg.Scripts.AppEN})
	assert.Equal(t, 4, cfg.Beautify.IndentSize)
	assert.Equal(t, 1300, cfg.Optimize.Critical.Width)
	assert.Equal(t, 900, cfg.Optimize.Critical.Height)
	assert.Equal(t, 300*time.Millisecond, cfg.Serve.Debounce)
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "dist", cfg.Dirs.Output)
}

func TestLoadOverridesAndExpandsEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SITEPIPE_TEST_PORT", "4100")
	writeFile(t, filepath.Join(root, DefaultFileName), `
version: "1"
dirs:
  dist: public
serve:
  port: ${SITEPIPE_TEST_PORT}
  debounce: 50ms
styles:
  targets: [chrome100]
`)

	cfg, err := Load(root, DefaultFileName)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Dirs.Output)
	assert.Equal(t, "public/assets", cfg.Dirs.Assets)
	assert.Equal(t, 4100, cfg.Serve.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Serve.Debounce)
	assert.Equal(t, []string{"chrome100"}, cfg.Styles.Targets)
}

func TestLoadReadsDotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Unsetenv("SITEPIPE_TEST_SASS"))
	t.Cleanup(func() { _ = os.Unsetenv("SITEPIPE_TEST_SASS") })
	writeFile(t, filepath.Join(root, ".env"), "SITEPIPE_TEST_SASS=/opt/sass/bin/sass\n")
	writeFile(t, filepath.Join(root, DefaultFileName), "styles:\n  sass_binary: ${SITEPIPE_TEST_SASS}\n")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/sass/bin/sass", cfg.Styles.SassBinary)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, DefaultFileName), "stylez:\n  output_name: x.css\n")

	_, err := Load(root, "")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, DefaultFileName), "version: \"9\"\n")

	_, err := Load(root, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration version")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"absolute output", func(c *Config) { c.Dirs.Output = "/tmp/dist" }, "dirs.dist"},
		{"escaping source", func(c *Config) { c.Dirs.Source = "../src" }, "dirs.src"},
		{"overlapping roots", func(c *Config) { c.Dirs.Output = "src/dist" }, "dirs.dist"},
		{"assets outside output", func(c *Config) { c.Dirs.Assets = "assets" }, "dirs.assets"},
		{"extension without dot", func(c *Config) { c.Templates.Extension = "tmpl" }, "templates.extension"},
		{"nested output name", func(c *Config) { c.Styles.OutputName = "css/main.css" }, "styles.output_name"},
		{"glob entry script", func(c *Config) { c.Scripts.App = "*.js" }, "scripts.app"},
		{"bad jpeg quality", func(c *Config) { c.Images.JPEGQuality = 101 }, "images.jpeg_quality"},
		{"bad port", func(c *Config) { c.Serve.Port = 70000 }, "serve.port"},
		{"bad ignore pattern", func(c *Config) { c.Optimize.UncssIgnore = []string{"("} }, "optimize.uncss_ignore"},
		{"zero viewport", func(c *Config) { c.Optimize.Critical.Width = -1 }, "optimize.critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			classified, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			field, _ := classified.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))

	cfg, err := Load(filepath.Dir(path), path)
	require.NoError(t, err)
	assert.Equal(t, Default().Serve.Port, cfg.Serve.Port)
	assert.Equal(t, Default().Optimize.UncssIgnore, cfg.Optimize.UncssIgnore)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
