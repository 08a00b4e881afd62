package transform

import "errors"

var (
	// ErrBinaryNotFound is returned when an external tool is not on PATH.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrExecutionFailed is returned when an external tool exits non-zero.
	ErrExecutionFailed = errors.New("execution failed")
)
