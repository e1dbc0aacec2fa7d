// Package camera owns the capture device.
//
// A single Bridge per process wraps the device lifecycle
// (released, initialized, running) and continuously copies frames into a
// latest-frame slot that HTTP handlers and the inference engine read
// without blocking on the device. A udev watcher reports video devices
// appearing and disappearing.
package camera
