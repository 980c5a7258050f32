// Package ingest turns imported scripts into storyboard rows.
//
// Three sources are supported: a tabular export (CSV) with a column mapping,
// markdown tables found in a chat transcript, and plain script lines that
// either seed a new table or are merged into an existing one by position.
// Every failure is table-scoped and wraps services.ErrImport; nothing is
// returned alongside an error.
package ingest
