// Package batch drives a generation operation over many rows.
//
// Selected rows are split into groups of Job.Concurrency in table order.
// Groups run one after another; the rows of a group run concurrently and the
// whole group is awaited before the next one starts. A failing row never stops
// its siblings or later groups: the failure is reported as a board.Failed
// event for that row alone.
//
// The runner never touches row state. All changes are sent as board.Events on
// the caller's channel, which the single state owner drains and applies while
// Run is executing.
package batch
