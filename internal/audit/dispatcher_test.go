package audit

import (
	"context"
	"sync/atomic"
	"testing"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatalf("disabled dispatcher must be nil")
	}

	// Nil dispatcher is emit-safe.
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher reports drops")
	}
}

func TestDispatchReachesSink(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "gate_failed_closed"})
	}
	d.Close()

	if got := sink.count.Load(); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64, DropIfFull: true}, sink)

	for i := 0; i < 40; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 40 {
		t.Fatalf("close must drain the buffer, delivered %d of 40", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("nothing should have been dropped, got %d", d.Dropped())
	}
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The sink blocks, so at most one event is in flight and one more is
	// buffered; every emit beyond that must drop synchronously.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "logout"})
	}

	if got := d.Dropped(); got < 8 {
		t.Fatalf("expected at least 8 drops with a stuck sink, got %d", got)
	}

	close(sink.gate)
	d.Close()
}

func TestEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Close()

	d.Emit(context.Background(), Event{EventType: "login_success"})
	if got := sink.count.Load(); got != 0 {
		t.Fatalf("emit after close must drop, delivered %d", got)
	}
}

func TestNilSinkDefaultsToNoOp(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, nil)
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
}
