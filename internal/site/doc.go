// Package site wires the configured routes, transform steps and aggregates
// into the task graph the CLI runs.
//
// The graph mirrors the conventional front-end build:
//
//	dev      parallel   templates styles scripts scriptses scriptsen images icons serve
//	build    parallel   templates styles scripts scriptses scriptsen images icons
//	optimize sequential uncss critical images
//	default  alias      dev
package site
