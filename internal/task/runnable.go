package task

import "context"

// Runnable is anything a Graph can run by name.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// Notifier is told which output paths a task changed. The live reload hub
// implements it.
type Notifier interface {
	Notify(paths []string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(paths []string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(paths []string) { f(paths) }

// Func wraps a function as a named Runnable.
type Func struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

// Name implements Runnable.
func (f Func) Name() string { return f.TaskName }

// Run implements Runnable.
func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
