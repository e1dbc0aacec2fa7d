// Package logging constructs the application's slog loggers.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log shipping. Component loggers attach a
// standard "component" attribute that the console handler promotes into
// the message prefix.
package logging
