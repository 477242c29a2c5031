// Package middleware exposes HTTP adapters for the seatlock request gate.
//
// # Handlers
//
//   - [Gate] — per-request enforcement: bearer token + X-Device-Id → Engine.Authorize.
//   - [HeartbeatHandler] — liveness probe that slides the claim's idle window.
//
// [Gate] reads the Authorization header and the X-Device-Id header, calls
// Engine.Authorize, and injects the decision into the request context for
// downstream handlers via [AuthResultFromContext].
//
// Rejections are written as a JSON envelope with a machine-readable code.
// The codes matter: "device_mismatch" (403) tells a client its seat was
// taken by another device and refreshing will not help, while
// "unauthenticated" (401) tells it the token is stale and a refresh may
// recover the session. Conflating the two causes refresh storms on
// displaced devices.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authorization logic itself — all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Validate access tokens directly (delegates to Engine).
//   - Access the claim registry (Engine handles I/O).
//   - Make pass/reject decisions beyond relaying Engine.Authorize.
package middleware
