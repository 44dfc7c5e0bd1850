// Package document loads desired-state documents from disk.
//
// Ownership boundary:
// - YAML and TOML decoding with document key order preserved
// - the config document shape (scope -> key -> value)
//
// Extension state interpretation lives in package extensions.
package document
