// Package replslot implements a replication slot registry: a fixed-capacity,
// process-wide table of slot descriptors, the concurrency discipline that
// arbitrates allocation, acquisition, mutation, release and drop of slots
// between concurrent callers, and the crash-safe on-disk persistence that
// lets the table be rebuilt on restart.
//
// A slot reserves retention for one consumer of the write-ahead log: the
// oldest WAL position and oldest transaction ids the consumer still needs.
// Reclamation machinery (log trimming, vacuum) consults the aggregates this
// package publishes before removing anything a slot still pins.
//
// The on-disk codec, file layout manager and startup salvage logic live in
// the fs subpackage; this package owns the in-memory table, its locking
// discipline, and the public lifecycle/aggregation operations.
//
// Lock ordering, enforced throughout: ALLOCATION_LOCK, then CONTROL_LOCK,
// then any sink the caller must publish to, then a slot's io lock, then its
// mutex. No code path holds a slot's mutex across I/O or across acquisition
// of another lock.
package replslot
