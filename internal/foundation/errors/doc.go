// Package errors provides the classified error primitives used across sitepipe.
//
// Every failure that reaches the CLI carries a category (config, filesystem,
// transform, task, serve, ...), a severity and a small bag of structured
// context such as the task name or the offending file. The CLI adapter turns
// the category into a process exit code.
//
// Example usage:
//
//	err := errors.TransformError("sass compile failed").
//		WithContext("task", "styles").
//		WithContext("file", "main.scss").
//		WithCause(cause).
//		Build()
package errors
