// Package registry provides the Redis-backed Session Registry: the
// authoritative single-slot-per-user record of which device is currently
// authorized for an account.
//
// # Binary encoding
//
// Claims are stored in Redis as a compact binary blob (schema versions
// v1–v2). The last-seen timestamp is always the trailing 8 bytes, which
// lets the touch script rewrite it in place without decoding the rest of
// the row.
//
// # Write discipline
//
// Every write fully determines the row's new state: Put replaces the whole
// row (last-writer-wins), Touch rewrites only the trailing timestamp, and
// Revoke deletes. No read-modify-write window exists that would need a
// transaction.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Claim] model.
// It does NOT validate tokens or decide whether a request passes — the
// one-device policy decision belongs to the Engine's gate.
//
// # What this package must NOT do
//
//   - Import the root seatlock package (no upward imports).
//   - Conflate "no claim row" with "claim revoked or unavailable".
//   - Store tokens or any credential material in [Claim] fields.
package registry
