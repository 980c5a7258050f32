// Package project reads and writes storyboard project files.
//
// Migrate accepts every historical shape of the JSON project file and yields
// the current model: the single generatedImage becomes the asset list, the
// single selectedCharacterIndex becomes a character set, missing indices are
// derived and out-of-range values clamped. Anything of the wrong type falls
// back to its default rather than failing the load; only input that is not a
// JSON object is rejected with ErrCorrupt.
//
// Encode writes the current shape, and Migrate(Encode(p)) reproduces p.
// Load and Save hold an advisory lock on "<path>.lock" and Save replaces the
// file atomically.
package project
