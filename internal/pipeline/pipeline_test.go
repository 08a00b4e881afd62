package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/routes"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestReadKeepsPathBelowBase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/templates/index.tmpl", "index")
	writeFile(t, root, "src/templates/blog/post.tmpl", "post")

	rt := routes.Route{Name: "templates", Sources: []string{"src/templates/**/*.tmpl"}, Dest: "dist"}
	files, err := Read(root, rt)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "blog/post.tmpl", files[0].Path)
	assert.Equal(t, "src/templates", files[0].Base)
	assert.Equal(t, "src/templates/blog/post.tmpl", files[0].Source())
	assert.Equal(t, "post", string(files[0].Content))
	assert.Equal(t, "index.tmpl", files[1].Path)
}

func TestReadNoMatches(t *testing.T) {
	rt := routes.Route{Name: "images", Sources: []string{"src/images/*"}}
	files, err := Read(t.TempDir(), rt)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func upper() Step {
	return PerFile("upper", func(_ context.Context, f File) (File, error) {
		return f.WithContent([]byte(strings.ToUpper(string(f.Content)))), nil
	})
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	var order []string
	record := func(name string) Step {
		return StepFunc{StepName: name, Fn: func(_ context.Context, files []File) ([]File, error) {
			order = append(order, name)
			return files, nil
		}}
	}

	out, err := Run(context.Background(), []File{{Path: "a.txt", Content: []byte("a")}},
		record("first"), upper(), record("last"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "last"}, order)
	assert.Equal(t, "A", string(out[0].Content))
}

func TestRunStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ranAfter bool
	steps := []Step{
		StepFunc{StepName: "fail", Fn: func(context.Context, []File) ([]File, error) { return nil, boom }},
		StepFunc{StepName: "after", Fn: func(_ context.Context, f []File) ([]File, error) { ranAfter = true; return f, nil }},
	}

	_, err := Run(context.Background(), nil, steps...)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ranAfter)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fail", se.Step)
}

func TestPerFileReportsFailingFile(t *testing.T) {
	step := PerFile("check", func(_ context.Context, f File) (File, error) {
		if f.Path == "bad.js" {
			return f, errors.New("syntax error")
		}
		return f, nil
	})

	_, err := Run(context.Background(), []File{{Path: "ok.js", Base: "src"}, {Path: "bad.js", Base: "src"}}, step)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "check", se.Step)
	assert.Equal(t, "src/bad.js", se.File)
	assert.Contains(t, err.Error(), "src/bad.js")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, []File{{Path: "a"}}, upper())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteIsAdditiveAndSkipsIdenticalContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dist/keep.html", "untouched")

	files := []File{
		{Path: "index.html", Content: []byte("<p>index</p>")},
		{Path: "blog/post.html", Content: []byte("<p>post</p>")},
	}
	changed, err := Write(root, "dist", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/index.html", "dist/blog/post.html"}, changed)

	got, err := os.ReadFile(filepath.Join(root, "dist", "blog", "post.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>post</p>", string(got))
	keep, err := os.ReadFile(filepath.Join(root, "dist", "keep.html"))
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(keep))

	info, err := os.Stat(filepath.Join(root, "dist", "index.html"))
	require.NoError(t, err)
	mtime := info.ModTime()
	time.Sleep(20 * time.Millisecond)

	changed, err = Write(root, "dist", files)
	require.NoError(t, err)
	assert.Empty(t, changed)
	info, err = os.Stat(filepath.Join(root, "dist", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, mtime, info.ModTime())

	files[0].Content = []byte("<p>changed</p>")
	changed, err = Write(root, "dist", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/index.html"}, changed)
}

func TestWriteRejectsEscapingPath(t *testing.T) {
	_, err := Write(t.TempDir(), "dist", []File{{Path: "../outside.txt", Content: []byte("x")}})
	require.Error(t, err)
}

func TestFileHelpers(t *testing.T) {
	f := File{Path: "blog/Post.TMPL", Base: "."}
	assert.Equal(t, ".tmpl", f.Ext())
	assert.Equal(t, "blog/Post.html", f.WithExt(".html").Path)
	assert.Equal(t, "blog/Post.TMPL", f.Source())
}
