// Package extensions reconciles installed shop extensions against a desired
// enabled/disabled table.
//
// Ownership boundary:
// - desired-state table parsing and fixed group ordering
// - uninstall-before-install sequencing per group
// - base-class-not-found tally and bounded install retries
//
// Command execution lives behind the Host interface; see internal/host.
package extensions
