package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const defaultFileMode fs.FileMode = 0o644

// Write stores files under root/dest, creating directories as needed. It is
// additive: files already in dest that the batch does not name are left alone.
// Files whose on-disk content is already identical are not rewritten. The
// returned paths are slash-relative to root and list only files that changed.
func Write(root, dest string, files []File) ([]string, error) {
	var changed []string
	for _, f := range files {
		rel := path.Join(dest, f.Path)
		if !strings.HasPrefix(rel, path.Clean(dest)+"/") {
			return changed, fmt.Errorf("write %s: path escapes destination %s", f.Path, dest)
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))

		existing, err := os.ReadFile(abs)
		switch {
		case err == nil && bytes.Equal(existing, f.Content):
			continue
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return changed, fmt.Errorf("read %s: %w", rel, err)
		}

		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return changed, fmt.Errorf("create directory for %s: %w", rel, err)
		}
		mode := f.Mode
		if mode == 0 {
			mode = defaultFileMode
		}
		if err := os.WriteFile(abs, f.Content, mode); err != nil {
			return changed, fmt.Errorf("write %s: %w", rel, err)
		}
		changed = append(changed, rel)
	}
	return changed, nil
}
