// Package transform provides the pipeline steps tasks are assembled from:
// template rendering, Sass compilation, CSS post-processing, script
// transpilation, beautification, image optimisation, unused-CSS removal and
// critical-path CSS inlining.
//
// Heavy lifting is delegated. Scripts and CSS go through esbuild, CSS parsing
// and minification through tdewolff, selector matching through cascadia, and
// Sass and js-beautify run as external binaries.
package transform
