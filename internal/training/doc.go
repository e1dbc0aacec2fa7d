// Package training launches the external detector's training entry
// point as a subprocess and surfaces its progress.
//
// The subprocess's combined output is teed to a timestamped log file
// while a tolerant line scanner extracts per-epoch progress and the
// precision/recall/mAP summary rows. Parsing is best effort: a training
// run whose output format drifts still completes, it just reports
// coarse progress.
package training
