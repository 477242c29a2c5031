// Package internal groups implementation packages that are private to
// seatlock.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - metrics — lock-free counters and latency histograms
//
// # What this package must NOT do
//
//   - Export types that appear in the public seatlock API (the root
//     package re-exports via aliases where needed).
//   - Be imported by any package outside the seatlock module.
package internal
