package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "unknown task", err: NotFoundError("unknown task").Build(), expected: 2},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "transform", err: TransformError("sass failed").Build(), expected: 11},
		{name: "wrapped task", err: fmt.Errorf("build: %w", TaskError("aggregate failed").Build()), expected: 11},
		{name: "serve", err: ServeError("port in use").Build(), expected: 12},
		{name: "internal", err: InternalError("oops").Build(), expected: 10},
		{name: "unclassified", err: errors.New("unknown"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	internal := InternalError("graph corrupted").Build()
	if got := quiet.FormatError(internal); !strings.Contains(got, "use -v") {
		t.Errorf("expected hint for internal error, got %q", got)
	}
	if got := verbose.FormatError(internal); !strings.Contains(got, "graph corrupted") {
		t.Errorf("expected message in verbose mode, got %q", got)
	}

	transform := TransformError("scripts failed").WithContext("task", "scripts").Build()
	if got := quiet.FormatError(transform); !strings.Contains(got, "task=scripts") {
		t.Errorf("expected task context in message, got %q", got)
	}
	if got := quiet.FormatError(errors.New("plain")); got != "Error: plain" {
		t.Errorf("unexpected plain format %q", got)
	}
	if got := quiet.FormatError(nil); got != "" {
		t.Errorf("expected empty string for nil, got %q", got)
	}
}

func TestCLIErrorAdapter_LogsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewCLIErrorAdapter(false, logger)

	adapter.logError(TaskError("styles failed").WithContext("task", "styles").Build())

	out := buf.String()
	if !strings.Contains(out, "category=task") || !strings.Contains(out, "task=styles") {
		t.Errorf("expected category and task attributes, got %q", out)
	}
}

func TestCLIErrorAdapter_LogLevelFollowsSeverity(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&buf, nil)))

	adapter.logError(TransformError("scripts failed").Build())
	if buf.Len() != 0 {
		t.Errorf("expected non-fatal error to stay below info, got %q", buf.String())
	}

	adapter.logError(ConfigError("unknown key").Build())
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "unknown key") {
		t.Errorf("expected fatal error at error level, got %q", out)
	}
}
