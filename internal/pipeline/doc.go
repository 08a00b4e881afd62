// Package pipeline moves file records through an ordered list of steps.
//
// A task reads the files selected by a route into memory, hands them to
// Run, and only writes the results once every step has succeeded. Nothing
// touches the destination directory while a step can still fail.
package pipeline
