// Package progress carries run milestones from the harvester to pluggable
// sinks. Events are buffered on a background goroutine so emitting never
// stalls a detail window.
package progress
