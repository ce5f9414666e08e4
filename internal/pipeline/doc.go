// Package pipeline runs one synchronisation pass: fetch the current
// snapshot and new history from the remote store, merge them into the
// local files and guarantee both files are valid when the pass ends.
//
// A pass never panics and never leaves an output file absent or
// malformed. Remote failures are absorbed into a degraded or failed
// Result; only a local write failure is returned as an error.
package pipeline
