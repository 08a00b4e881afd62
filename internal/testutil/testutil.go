// Package testutil provides project fixtures and file assertions for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"
)

// SetupSite copies the fixture project into a fresh temporary directory and
// returns its path. The fixture has two pages, one partial, a stylesheet that
// imports a Sass partial, the three entry scripts, an SVG image and a vendor font.
func SetupSite(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "locate fixtures")
	src := filepath.Join(filepath.Dir(file), "testdata", "site")
	dst := filepath.Join(t.TempDir(), "sitepipe-test-"+uuid.New().String())
	require.NoError(t, copy.Copy(src, dst))
	return dst
}

// WriteFile writes content to rel below root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// FileAssertions checks file system state below a base directory.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

// Read returns the content of rel, failing the test when it cannot be read.
func (fa *FileAssertions) Read(rel string) string {
	fa.t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(filepath.Join(fa.baseDir, filepath.FromSlash(rel)))
	require.NoError(fa.t, err)
	return string(content)
}

// AssertFileExists validates that a file exists.
func (fa *FileAssertions) AssertFileExists(rel string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, filepath.FromSlash(rel))
	if _, err := os.Stat(fullPath); err != nil {
		fa.t.Errorf("Expected file to exist: %s", fullPath)
	}
	return fa
}

// AssertNoFile validates that nothing exists at rel.
func (fa *FileAssertions) AssertNoFile(rel string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, filepath.FromSlash(rel))
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected no file at %s", fullPath)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content.
func (fa *FileAssertions) AssertFileContains(rel, expected string) *FileAssertions {
	fa.t.Helper()
	if content := fa.Read(rel); !strings.Contains(content, expected) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s", rel, expected, content)
	}
	return fa
}

// AssertFileNotContains validates that a file does not contain unexpected content.
func (fa *FileAssertions) AssertFileNotContains(rel, unexpected string) *FileAssertions {
	fa.t.Helper()
	if content := fa.Read(rel); strings.Contains(content, unexpected) {
		fa.t.Errorf("Expected file %s not to contain %q\nActual content:\n%s", rel, unexpected, content)
	}
	return fa
}

// Snapshot returns every file below dir (relative to the base) with its content.
func (fa *FileAssertions) Snapshot(dir string) map[string]string {
	fa.t.Helper()
	out := map[string]string{}
	root := filepath.Join(fa.baseDir, filepath.FromSlash(dir))
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(fa.baseDir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path) // #nosec G304 - test helper
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(fa.t, err)
	return out
}
