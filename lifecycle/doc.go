// Package lifecycle keeps a client's session alive without user
// interaction: proactive token refresh, wake-triggered revalidation,
// cross-context logout detection, and typed events for everything that
// changes session state.
//
// # Components
//
//   - [Manager] — the scheduler. Owns the refresh timer, the single-flight
//     guard, and the state machine (Unauthenticated → Fresh → Refreshing →
//     Fresh | Expired).
//   - [CredentialStore] — persisted client state under stable keys
//     (access token, refresh token, profile, device id). [FileStore] is the
//     atomic-rename file implementation; [MemoryStore] backs tests.
//   - [StoreWatcher] — polls the store's access-token key; its removal by
//     another context is the logout signal, detected with no network call.
//   - [EnsureDeviceID] — one stable identifier per installation, generated
//     once and persisted. Losing it just means "new device" to the server.
//
// # Refresh contract
//
// Refresh takes no arguments and reads the stored refresh token. Concurrent
// triggers (timer + wake firing together) collapse into one provider call.
// No stored token means no-op. A provider rejection is terminal: persisted
// session state is cleared, SessionExpired fires, timers stop. A transport
// failure changes nothing — the user may be offline, not logged out — and
// the manager never retries on its own; the next natural trigger is the
// retry.
//
// # Architecture boundaries
//
// This package is the client half of the system. It talks to the
// AuthProvider for refresh and to its own CredentialStore; it never touches
// the server-side claim registry.
//
// # What this package must NOT do
//
//   - Interpret a device mismatch as a reason to refresh (refreshing
//     repeats the conflict; the gate owns that rejection).
//   - Retry a failed refresh in a loop.
//   - Clear persisted state on transport failures.
package lifecycle
