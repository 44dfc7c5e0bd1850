// Package configsync reconciles desired configuration values against the live
// store, scope by scope.
//
// Ownership boundary:
// - value canonicalization and per-scope diffing
// - global-then-named scope ordering
// - "no config update" accounting across translated scope names
//
// Reading documents and talking to the database are not owned here.
package configsync
