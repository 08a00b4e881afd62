package transform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Tool runs an external program that reads stdin and writes stdout.
type Tool interface {
	Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error)
}

// Binary invokes a program found on PATH.
type Binary struct {
	Name string
	Dir  string
}

// Run implements Tool. Stderr (or stdout, when stderr is empty) is folded
// into the returned error so tool diagnostics reach the task log.
func (b Binary) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(b.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, b.Name, err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = b.Dir
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking external tool", "binary", b.Name, "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		if output != "" {
			return nil, fmt.Errorf("%w: %s: %w: %s", ErrExecutionFailed, b.Name, err, output)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, b.Name, err)
	}
	if errStr := strings.TrimSpace(stderr.String()); errStr != "" {
		slog.Warn("External tool stderr", "binary", b.Name, "error_output", errStr)
	}
	return stdout.Bytes(), nil
}

// ToolFunc adapts a function to Tool.
type ToolFunc func(ctx context.Context, stdin []byte, args ...string) ([]byte, error)

// Run implements Tool.
func (f ToolFunc) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	return f(ctx, stdin, args...)
}
