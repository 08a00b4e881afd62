package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration *prom.HistogramVec
	taskResults  *prom.CounterVec
	filesWritten *prom.CounterVec
	watchTrigger *prom.CounterVec
	reloads      *prom.CounterVec
	lrClients    prom.Gauge
}

// NewPrometheusRecorder constructs and registers the sitepipe metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitepipe",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitepipe",
			Name:      "task_results_total",
			Help:      "Task run counts by outcome",
		}, []string{"task", "result"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitepipe",
			Name:      "files_written_total",
			Help:      "Output files written (unchanged files are not counted)",
		}, []string{"task"}),
		watchTrigger: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitepipe",
			Name:      "watch_triggers_total",
			Help:      "Task runs dispatched by filesystem changes",
		}, []string{"task"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitepipe",
			Name:      "livereload_broadcasts_total",
			Help:      "Reload events pushed to browsers",
		}, []string{"kind"}),
		lrClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitepipe",
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.filesWritten, pr.watchTrigger, pr.reloads, pr.lrClients)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveFilesWritten(task string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesWritten.WithLabelValues(task).Add(float64(n))
}

func (p *PrometheusRecorder) IncWatchTrigger(task string) {
	if p == nil {
		return
	}
	p.watchTrigger.WithLabelValues(task).Inc()
}

func (p *PrometheusRecorder) IncReloadBroadcast(kind string) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.lrClients.Set(float64(n))
}
