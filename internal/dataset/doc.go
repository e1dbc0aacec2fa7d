// Package dataset materializes a detector-ready train/validation layout
// from the annotation repository.
//
// Every build starts from a clean slate: the four target subdirectories
// are purged, pairs are shuffled and split, files are copied (never
// moved), and a data.yaml descriptor is written for the external
// training binary.
package dataset
