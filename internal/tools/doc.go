// Package tools provides host command execution shared by the host adapters.
//
// Ownership boundary:
// - command execution helpers
// - exit code normalization
package tools
