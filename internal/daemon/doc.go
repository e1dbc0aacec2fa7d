// Package daemon wires the annotation repository, task substrate,
// training orchestrator, inference engine, and camera bridge together
// behind the HTTP API, and enforces single-instance execution with a
// lock file.
package daemon
