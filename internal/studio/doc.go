// Package studio owns an open storyboard project.
//
// A Session is the single writer of a project's rows, roster and settings.
// Every edit goes through it; rows are replaced, never mutated. Roster and
// default character edits reconcile every row's character set. Generation
// runs a batch against a snapshot of the project taken at launch and applies
// the batch's events to the live rows one at a time, so edits made while a
// batch runs are preserved and results land on the row by ID.
//
// When a history store is attached, every finished row operation is recorded
// with its prompt and outcome.
package studio
