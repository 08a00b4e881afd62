package site

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/serve"
	"git.home.luguber.info/inful/sitepipe/internal/testutil"
	"git.home.luguber.info/inful/sitepipe/internal/transform"
)

var (
	sassImport = regexp.MustCompile(`(?m)^@import\s+"([^"]+)";\s*$`)
	sassVar    = regexp.MustCompile(`(?m)^\$([\w-]+):\s*([^;]+);\s*$`)
)

// fakeSass resolves @import against the --load-path arguments and
// substitutes top-level variables. It is enough for the fixture project.
func fakeSass(_ context.Context, stdin []byte, args ...string) ([]byte, error) {
	var loadPaths []string
	for _, a := range args {
		if p, ok := strings.CutPrefix(a, "--load-path="); ok {
			loadPaths = append(loadPaths, p)
		}
	}
	src := string(stdin)
	vars := map[string]string{}
	for _, m := range sassImport.FindAllStringSubmatch(src, -1) {
		content, err := findPartial(loadPaths, m[1])
		if err != nil {
			return nil, err
		}
		for _, v := range sassVar.FindAllStringSubmatch(content, -1) {
			vars[v[1]] = strings.TrimSpace(v[2])
		}
	}
	for _, v := range sassVar.FindAllStringSubmatch(src, -1) {
		vars[v[1]] = strings.TrimSpace(v[2])
	}
	src = sassImport.ReplaceAllString(src, "")
	src = sassVar.ReplaceAllString(src, "")
	for name, value := range vars {
		src = strings.ReplaceAll(src, "$"+name, value)
	}
	return []byte(src), nil
}

func findPartial(loadPaths []string, name string) (string, error) {
	dir, base := filepath.Split(filepath.FromSlash(name))
	for _, lp := range loadPaths {
		for _, candidate := range []string{"_" + base + ".scss", base + ".scss"} {
			if content, err := os.ReadFile(filepath.Join(lp, dir, candidate)); err == nil {
				return string(content), nil
			}
		}
	}
	return "", fmt.Errorf("%w: sass: Can't find stylesheet to import: %q", transform.ErrExecutionFailed, name)
}

func identity(_ context.Context, stdin []byte, _ ...string) ([]byte, error) {
	return stdin, nil
}

func newSite(t *testing.T, root string, mutate ...func(*config.Config)) *Site {
	t.Helper()
	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	for _, m := range mutate {
		m(cfg)
	}
	s, err := New(cfg, WithSass(transform.ToolFunc(fakeSass)), WithBeautifier(transform.ToolFunc(identity)))
	require.NoError(t, err)
	return s
}

func TestGraphDefinition(t *testing.T) {
	s := newSite(t, testutil.SetupSite(t))

	assert.Equal(t, []string{
		"templates", "styles", "scripts", "scriptses", "scriptsen",
		"beautify", "beautifyes", "beautifyen", "images", "icons",
		"serve", "uncss", "critical", "dev", "build", "optimize", "default",
	}, s.Graph().Names())

	kinds := map[string]string{}
	members := map[string][]string{}
	for _, e := range s.Graph().Entries() {
		kinds[e.Name] = e.Kind
		members[e.Name] = e.Members
	}
	assert.Equal(t, "parallel", kinds[Dev])
	assert.Equal(t, "sequential", kinds[Optimize])
	assert.Equal(t, "alias", kinds[Default])
	assert.Equal(t, []string{Dev}, members[Default])
	assert.Equal(t, []string{Uncss, Critical, "images"}, members[Optimize])
	assert.Contains(t, members[Dev], Serve)
	assert.NotContains(t, members[Build], Serve)
}

func TestBuildProducesOutputTree(t *testing.T) {
	root := testutil.SetupSite(t)
	s := newSite(t, root)

	require.NoError(t, s.Run(context.Background(), Build))

	fa := testutil.NewFileAssertions(t, root)
	fa.AssertFileContains("dist/index.html", `<title>Fixture index.html</title>`).
		AssertFileContains("dist/index.html", `href="assets/css/main.css"`).
		AssertFileContains("dist/index.html", "<em>emphasis</em>").
		AssertFileContains("dist/about/index.html", `href="../assets/css/main.css"`).
		AssertNoFile("dist/_includes/head.html").
		AssertFileContains("dist/assets/css/main.css", ".site-header{color:#369}").
		AssertFileNotContains("dist/assets/css/main.css", "$brand").
		AssertFileExists("dist/assets/js/app.js").
		AssertFileExists("dist/assets/js/appes.js").
		AssertFileExists("dist/assets/js/appen.js").
		AssertFileExists("dist/assets/files/img/logo.svg").
		AssertFileExists("dist/assets/files/fonts/fontawesome-webfont.woff2")

	assert.NotContains(t, fa.Read("dist/assets/js/app.js"), "name", "local identifiers are minified")
	assert.NotContains(t, fa.Read("dist/assets/files/img/logo.svg"), "<!--")
}

func TestBuildIsIdempotent(t *testing.T) {
	root := testutil.SetupSite(t)
	s := newSite(t, root)
	fa := testutil.NewFileAssertions(t, root)

	require.NoError(t, s.Run(context.Background(), Build))
	first := fa.Snapshot("dist")
	info, err := os.Stat(filepath.Join(root, "dist", "index.html"))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), Build))
	assert.Equal(t, first, fa.Snapshot("dist"))
	again, err := os.Stat(filepath.Join(root, "dist", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestStylesFailureDoesNotStopOtherTasks(t *testing.T) {
	root := testutil.SetupSite(t)
	testutil.WriteFile(t, root, "src/styles/broken.scss", "@import \"missing\";\n.x { color: red; }\n")
	s := newSite(t, root)

	err := s.Run(context.Background(), Build)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransform))
	assert.Contains(t, err.Error(), "missing")

	testutil.NewFileAssertions(t, root).
		AssertNoFile("dist/assets/css/main.css").
		AssertFileExists("dist/assets/js/app.js").
		AssertFileExists("dist/index.html")
}

func TestEmptySourceDirectoriesSucceed(t *testing.T) {
	root := t.TempDir()
	s := newSite(t, root)
	require.NoError(t, s.Run(context.Background(), Build))
	_, err := os.Stat(filepath.Join(root, "dist"))
	assert.True(t, os.IsNotExist(err))
}

func TestBeautifyRewritesSourcesInPlace(t *testing.T) {
	root := testutil.SetupSite(t)
	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	upper := transform.ToolFunc(func(_ context.Context, stdin []byte, _ ...string) ([]byte, error) {
		return []byte(strings.ToUpper(string(stdin))), nil
	})
	s, err := New(cfg, WithSass(transform.ToolFunc(fakeSass)), WithBeautifier(upper))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), "beautify", "beautifyes"))
	fa := testutil.NewFileAssertions(t, root)
	fa.AssertFileContains("src/scripts/app.js", "CONSOLE.LOG").
		AssertFileContains("src/scripts/appes.js", "CONSOLE.LOG").
		AssertFileContains("src/scripts/appen.js", "console.log")
}

func TestInPlaceTasksDoNotTriggerReload(t *testing.T) {
	root := testutil.SetupSite(t)
	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	upper := transform.ToolFunc(func(_ context.Context, stdin []byte, _ ...string) ([]byte, error) {
		return []byte(strings.ToUpper(string(stdin))), nil
	})
	reg := prometheus.NewRegistry()
	s, err := New(cfg, WithPrometheus(reg), WithSass(transform.ToolFunc(fakeSass)), WithBeautifier(upper))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), "beautify"))
	n, err := promtestutil.GatherAndCount(reg, "sitepipe_livereload_broadcasts_total")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Run(context.Background(), "scripts"))
	n, err = promtestutil.GatherAndCount(reg, "sitepipe_livereload_broadcasts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOptimizeRemovesUnusedRulesAndInlinesCritical(t *testing.T) {
	root := testutil.SetupSite(t)
	s := newSite(t, root)
	require.NoError(t, s.Run(context.Background(), Build, Optimize))

	fa := testutil.NewFileAssertions(t, root)
	fa.AssertFileNotContains("dist/assets/css/main.css", "unused-widget").
		AssertFileContains("dist/assets/css/main.css", ".lead").
		AssertFileContains("dist/index.html", "<style data-critical>").
		AssertFileContains("dist/index.html", ".site-header")

	index := fa.Read("dist/index.html")
	head := index[:strings.Index(index, "</head>")]
	assert.Contains(t, head, "data-critical")
	assert.NotContains(t, head, ".lead", "rules for elements absent from the page are not inlined")

	snapshot := fa.Snapshot("dist")
	require.NoError(t, s.Run(context.Background(), Optimize))
	assert.Equal(t, snapshot, fa.Snapshot("dist"))
}

func TestOptimizeWithNoPages(t *testing.T) {
	root := testutil.SetupSite(t)
	s := newSite(t, root)
	require.NoError(t, s.Run(context.Background(), Build))
	require.NoError(t, os.Remove(filepath.Join(root, "dist", "index.html")))
	require.NoError(t, os.RemoveAll(filepath.Join(root, "dist", "about")))

	require.NoError(t, s.Run(context.Background(), Optimize))
	css := testutil.NewFileAssertions(t, root).Read("dist/assets/css/main.css")
	assert.NotContains(t, css, "site-header")
	assert.NotContains(t, css, "unused-widget")
}

func TestRunRejectsUnknownTask(t *testing.T) {
	root := testutil.SetupSite(t)
	s := newSite(t, root)
	err := s.Run(context.Background(), Build, "nope")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	testutil.NewFileAssertions(t, root).AssertNoFile("dist/index.html")
}

func TestNewRejectsInvalidTargets(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.Scripts.Target = "es1999"
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	cfg = config.Default()
	cfg.Root = t.TempDir()
	cfg.Styles.Targets = []string{"netscape4"}
	_, err = New(cfg)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = New(config.Default())
	require.Error(t, err)
}

func TestServeRebuildsOnChangeAndReloads(t *testing.T) {
	root := testutil.SetupSite(t)
	reg := prometheus.NewRegistry()
	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	cfg.Serve.Host = "127.0.0.1"
	cfg.Serve.Port = 0
	cfg.Serve.Debounce = 50 * time.Millisecond
	cfg.Serve.Metrics = true
	s, err := New(cfg, WithPrometheus(reg), WithSass(transform.ToolFunc(fakeSass)), WithBeautifier(transform.ToolFunc(identity)))
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), Build))

	r, ok := s.Graph().Get(Serve)
	require.True(t, ok)
	runner, ok := r.(*serve.Runner)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, Serve) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(6 * time.Second):
			t.Error("serve did not stop")
		}
	}()

	require.Eventually(t, func() bool { return runner.Server().State() == serve.StateServing }, 3*time.Second, 10*time.Millisecond)
	base := runner.Server().URL()

	body := get(t, base+"/")
	assert.Contains(t, body, "Home")
	assert.Contains(t, body, "/livereload.js")
	assert.Contains(t, get(t, base+"/metrics"), "sitepipe_task_results_total")

	events := subscribe(t, ctx, base+"/livereload")
	var baseline serve.Event
	select {
	case baseline = <-events:
	case <-time.After(3 * time.Second):
		t.Fatal("no baseline event")
	}
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	indexPath := filepath.Join(root, "dist", "index.html")
	before, err := os.Stat(indexPath)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, root, "src/styles/main.scss", "@import \"vars\";\n.site-header { color: red; }\n")

	// A reload is sent only after the styles task has written its output.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case ev := <-events:
			assert.NotEqual(t, baseline.Hash, ev.Hash)
			assert.True(t, ev.CSS, "style-only change should request a css reload")
			reloaded = strings.Contains(get(t, base+"/assets/css/main.css"), "color:red")
		case <-deadline:
			t.Fatal("no reload after stylesheet change")
		}
	}

	after, err := os.Stat(indexPath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "templates must not run for a stylesheet change")
}

// subscribe streams live reload events from url until ctx ends.
func subscribe(t *testing.T, ctx context.Context, url string) <-chan serve.Event {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan serve.Event, 16)
	go func() {
		r := bufio.NewReader(resp.Body)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			var ev serve.Event
			if json.Unmarshal([]byte(strings.TrimSpace(data)), &ev) == nil {
				events <- ev
			}
		}
	}()
	return events
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
