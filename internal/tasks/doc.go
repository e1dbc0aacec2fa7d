// Package tasks is the asynchronous substrate for long-running jobs.
//
// A process-wide registry maps task ids to status records. Jobs are
// admitted through a FIFO queue drained by exactly one background
// worker, so heavy work (training, video extraction, dataset builds)
// never runs concurrently with itself. Records live in memory for the
// process lifetime; an optional sqlite journal keeps terminal records
// readable across restarts.
package tasks
