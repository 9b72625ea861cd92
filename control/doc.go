// Package control serializes motor intents onto a clearlink.Driver.
//
// A Controller holds one mutex for the duration of every public call, so no two protocol
// operations interleave. It deduplicates repeated velocity commands, applies per-axis operations
// with continue-on-error semantics and keeps lifetime command and error counters.
package control
