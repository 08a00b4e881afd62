// Package task defines the runnable units of a build: transform tasks that
// read a route, pipe its files through steps and write the results, and
// aggregates that run other tasks in parallel or in sequence. A Graph holds
// every named runnable and is fixed once built.
package task
