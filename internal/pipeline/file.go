package pipeline

import (
	"io/fs"
	"path"
	"strings"
)

// File is one in-memory file flowing through a pipeline.
type File struct {
	// Path is slash-separated and relative to Base. It becomes the path
	// below the destination directory when the file is written.
	Path string
	// Base is the slash-relative directory the file was read from.
	Base    string
	Content []byte
	Mode    fs.FileMode
}

// Source returns the file's path relative to the project root.
func (f File) Source() string {
	if f.Base == "" || f.Base == "." {
		return f.Path
	}
	return path.Join(f.Base, f.Path)
}

// Ext returns the lower-cased extension of the file's path, including the dot.
func (f File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// WithExt returns a copy of f whose path carries ext instead of its current extension.
func (f File) WithExt(ext string) File {
	f.Path = strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext
	return f
}

// WithContent returns a copy of f holding content.
func (f File) WithContent(content []byte) File {
	f.Content = content
	return f
}
