// Package store owns the live configuration and sales channel state that the
// sync commands reconcile against.
//
// Ownership boundary:
// - scoped configuration reads and writes
// - sales channel scope listing with translated names
// - SQL and in-memory backends
package store
