// Package services defines shared utilities consumed by the generation
// operations and the external model integration.
//
// Key responsibilities:
//   - Context helpers that stamp row IDs, operation names, and batch
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so import, migration and
//     generation failures can be classified with errors.Is.
//
// Row-scoped failures are carried as messages on the row; table-scoped
// failures (import, migration) are returned to the caller unchanged.
package services
