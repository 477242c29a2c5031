// Package seatlock enforces a single-active-device session policy on top of
// an external token issuer: one authorized device per user account, a
// per-request authorization gate, and Redis-backed claim bookkeeping.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Token issuance, validation, and rotation belong to the
// caller-supplied [AuthProvider]; seatlock is the policy layer above it.
//
// # Architecture boundaries
//
// seatlock is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, AuthResult, AuditEvent, MetricsSnapshot). All
// internal coordination — flow orchestration, claim encoding, audit
// dispatch — lives under internal/ and is never exported. The client-side
// scheduler lives in the lifecycle sub-package; HTTP adapters in middleware.
//
// # What this package must NOT do
//
//   - Implement an identity provider: no password hashing, no token signing.
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Fail open when the registry is unreachable — a registry error rejects
//     the request, never allows it.
//
// # Performance contract
//
// Authorize is the hot path. It performs one provider validation plus one
// Redis GET (and one Lua touch when touch-on-pass is enabled). Login,
// Refresh, and Logout are allowed one additional Redis round-trip per call.
package seatlock
