package registry

// Claim is the single-slot session row for one user. At most one claim
// exists per user at any instant; writing a new claim unconditionally
// replaces the previous one (last-writer-wins).
//
// Claim instances are value snapshots decoded from the store and are not
// shared between callers.
type Claim struct {
	UserID   string
	DeviceID string

	SchemaVersion uint8

	ClaimedAt  int64
	LastSeenAt int64
}
