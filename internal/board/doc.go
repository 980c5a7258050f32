// Package board holds the storyboard row model.
//
// A Row is never mutated once it is shared: every edit returns a new *Row, so
// pointer identity tells callers whether a row changed. Generation results
// arrive as Events keyed by row ID and are folded in with Row.Apply. Assets
// are append-only; MainAsset selects one of them or is -1.
package board
