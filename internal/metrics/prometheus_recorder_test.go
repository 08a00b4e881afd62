package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveTaskDuration("styles", 150*time.Millisecond)
	pr.IncTaskResult("styles", ResultSuccess)
	pr.IncTaskResult("styles", ResultSuccess)
	pr.IncTaskResult("scripts", ResultFailed)
	pr.ObserveFilesWritten("styles", 2)
	pr.ObserveFilesWritten("styles", 0)
	pr.IncWatchTrigger("templates")
	pr.IncReloadBroadcast("css")
	pr.SetLiveReloadClients(3)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.taskResults.WithLabelValues("styles", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.taskResults.WithLabelValues("scripts", "failed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.filesWritten.WithLabelValues("styles")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.watchTrigger.WithLabelValues("templates")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.reloads.WithLabelValues("css")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.lrClients), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveTaskDuration("styles", time.Second)
	pr.IncTaskResult("styles", ResultSuccess)
	pr.IncReloadBroadcast("page")
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncTaskResult("images", ResultEmpty)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `sitepipe_task_results_total{result="empty",task="images"} 1`))
}
