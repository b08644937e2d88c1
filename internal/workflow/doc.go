// Package workflow drives recordings through the pipeline stages.
//
// Each run (collect, prepare, trim, process) walks its files one at a time,
// asks the planner whether cached work is still valid, calls the stage
// adapters, and records results in the ledger. Progress is reported as a
// stream of Events; a run ends with a summary event carrying its counters.
//
// Per-file errors are reported and counted and the run moves on to the next
// file. Cancellation is checked between files only: a file that has started
// a stage finishes it, bounded by that stage's own timeout.
package workflow
