// Package api holds the error taxonomy and the request/response types
// shared between the daemon's HTTP surface and the CLI client.
package api
