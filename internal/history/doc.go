// Package history records every row generation attempt in SQLite.
//
// Each attempt stores the batch it belonged to, the row and operation, the
// exact prompt sent to the model, the outcome and any error message. The
// database lives at config.HistoryPath() and is migrated on Open from the
// embedded migrations directory.
//
// The store is an audit trail only; project files never depend on it.
package history
