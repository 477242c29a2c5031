// Package metrics provides lock-free counters and latency histograms for
// session-policy observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic]. Histograms use 8 fixed buckets
// (≤5ms … +Inf). Both are allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Export to an
// external system is the embedding application's concern and reads
// Snapshot values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import seatlock or any sibling package.
//   - Expose global metric registries.
package metrics
