// Package serve runs the development server: a static file server over the
// output directory, an SSE live reload endpoint, and the watch loop that
// re-runs tasks when sources change.
package serve
