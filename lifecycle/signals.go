package lifecycle

import (
	"sync"
	"time"
)

// WakeSignal delivers wake notifications: the platform analog of a tab
// regaining visibility or a window regaining focus. Each receive prompts
// the manager to refresh immediately, covering timers that could not fire
// while the context was suspended.
type WakeSignal interface {
	Wakes() <-chan struct{}
}

// InvalidationSignal notifies that another context sharing the same
// storage ended the session. Platform-specific by nature (browser storage
// events, OS IPC); [StoreWatcher] is the portable polling implementation.
type InvalidationSignal interface {
	Invalidations() <-chan struct{}
}

// ManualSignal is a hand-triggered signal usable as either a WakeSignal
// or an InvalidationSignal. Intended for tests and for platforms that
// deliver their own notifications.
type ManualSignal struct {
	ch chan struct{}
}

func NewManualSignal() *ManualSignal {
	return &ManualSignal{ch: make(chan struct{}, 1)}
}

// Trigger fires the signal. Coalesces when a previous trigger is still
// pending.
func (s *ManualSignal) Trigger() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *ManualSignal) Wakes() <-chan struct{}         { return s.ch }
func (s *ManualSignal) Invalidations() <-chan struct{} { return s.ch }

// StoreWatcher polls a CredentialStore for the disappearance of the
// access-token key and emits an invalidation when a previously-present
// token goes away. This is how logout in one context reaches its siblings
// without a server round trip.
type StoreWatcher struct {
	store    CredentialStore
	interval time.Duration

	// hadToken is the presence baseline, snapshotted at construction so a
	// logout landing before the first poll is still observed as a
	// present-to-absent transition.
	hadToken bool

	ch        chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStoreWatcher starts polling immediately. interval defaults to 250ms
// when zero. Callers must Close the watcher to stop the polling goroutine.
func NewStoreWatcher(store CredentialStore, interval time.Duration) *StoreWatcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	w := &StoreWatcher{
		store:    store,
		interval: interval,
		ch:       make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	_, w.hadToken, _ = w.store.Get(KeyAccessToken)

	w.wg.Add(1)
	go w.run()

	return w
}

func (w *StoreWatcher) Invalidations() <-chan struct{} { return w.ch }

func (w *StoreWatcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	hadToken := w.hadToken

	for {
		select {
		case <-ticker.C:
			_, hasToken, err := w.store.Get(KeyAccessToken)
			if err != nil {
				// Unreadable storage is not a logout.
				continue
			}
			if hadToken && !hasToken {
				select {
				case w.ch <- struct{}{}:
				default:
				}
			}
			hadToken = hasToken
		case <-w.done:
			return
		}
	}
}

func (w *StoreWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}
