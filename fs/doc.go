// Package fs implements the crash-safe on-disk representation of a
// replication slot: the fixed binary record codec (magic, CRC-32C, version,
// length header over a fixed dynamic region), the file layout manager that
// creates/saves/drops a slot's directory with the rename+fsync ordering
// needed to survive a crash at any point, and the startup salvage logic
// that rebuilds a Record from state or, failing that, state.backup.
//
// Everything in this package is a pure file-system concern: it knows
// nothing about the in-memory slot table, its locks, or the aggregation
// queries built on top of it. The replslot package drives it.
package fs
