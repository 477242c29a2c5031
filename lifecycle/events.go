package lifecycle

import (
	"sync"

	seatlock "github.com/preplabs/seatlock"
)

// EventType identifies a lifecycle transition.
type EventType int

const (
	// EventSessionEstablished fires when a session is installed via
	// Establish (after login) or recovered on Start.
	EventSessionEstablished EventType = iota

	// EventSessionRefreshed fires after a successful token refresh.
	EventSessionRefreshed

	// EventSessionExpired fires when the refresh token was rejected and
	// local state was cleared. The sole token-failure path out of a
	// session.
	EventSessionExpired

	// EventLoggedOut fires on explicit logout, or when another context's
	// logout was detected through the invalidation signal.
	EventLoggedOut
)

func (t EventType) String() string {
	switch t {
	case EventSessionEstablished:
		return "session_established"
	case EventSessionRefreshed:
		return "session_refreshed"
	case EventSessionExpired:
		return "session_expired"
	case EventLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every lifecycle transition. User is
// set on established/refreshed events when a profile is known.
type Event struct {
	Type EventType
	User *seatlock.UserProfile
}

// bus is a minimal in-process pub/sub registry. Delivery is non-blocking:
// a subscriber that stops draining its channel loses events rather than
// stalling the scheduler.
type bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan Event)}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 8)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *bus) publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
