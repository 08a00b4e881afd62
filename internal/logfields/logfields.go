package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTask       = "task"
	KeyAggregate  = "aggregate"
	KeyRoute      = "route"
	KeyStep       = "step"
	KeyFile       = "file"
	KeyFiles      = "files"
	KeyDest       = "dest"
	KeyRunID      = "run_id"
	KeyDurationMS = "duration_ms"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func Aggregate(name string) slog.Attr { return slog.String(KeyAggregate, name) }
func Route(name string) slog.Attr     { return slog.String(KeyRoute, name) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Dest(dir string) slog.Attr       { return slog.String(KeyDest, dir) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Addr(addr string) slog.Attr      { return slog.String(KeyAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
