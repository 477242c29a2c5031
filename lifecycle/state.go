package lifecycle

// State is the manager's position in the session state machine.
type State int

const (
	// StateUnauthenticated means no session is held. The initial state,
	// and the resting state after logout or expiry cleanup.
	StateUnauthenticated State = iota

	// StateFresh means a session is held and believed valid.
	StateFresh

	// StateRefreshing means a refresh call is in flight. Reachable only
	// from StateFresh; resolves to StateFresh or StateExpired.
	StateRefreshing

	// StateExpired means the refresh token was rejected. Transient:
	// cleanup runs immediately and lands in StateUnauthenticated.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateFresh:
		return "fresh"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}
