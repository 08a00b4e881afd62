package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultEmpty    ResultLabel = "empty" // glob matched nothing
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for task runs, watch triggers and live reload.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveFilesWritten(task string, n int)
	IncWatchTrigger(task string)
	IncReloadBroadcast(kind string) // kind: page|css
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveFilesWritten(string, int)           {}
func (NoopRecorder) IncWatchTrigger(string)                    {}
func (NoopRecorder) IncReloadBroadcast(string)                 {}
func (NoopRecorder) SetLiveReloadClients(int)                  {}
