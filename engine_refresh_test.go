package seatlock

import (
	"context"
	"errors"
	"testing"
)

func TestRefreshRotatesTokens(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := engine.Refresh(ctx, login.Session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Session.AccessToken == login.Session.AccessToken {
		t.Fatalf("expected a new access token from refresh")
	}
	if res.User.ID != "user-42" {
		t.Fatalf("unexpected identity %q after refresh", res.User.ID)
	}

	// The provider rotates: the consumed refresh token is now dead.
	_, err = engine.Refresh(ctx, login.Session.RefreshToken)
	if !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("expected ErrRefreshRejected for consumed token, got %v", err)
	}
}

func TestRefreshRejectedVsTransport(t *testing.T) {
	engine, provider, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	provider.setDown(true)
	_, err = engine.Refresh(ctx, login.Session.RefreshToken)
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("expected ErrTransportFailure while provider is down, got %v", err)
	}
	if errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("transport failure must never classify as a rejection")
	}

	// Once the provider is reachable again, the same token still works —
	// nothing was invalidated by the outage.
	provider.setDown(false)
	if _, err := engine.Refresh(ctx, login.Session.RefreshToken); err != nil {
		t.Fatalf("refresh after outage: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRefreshTransportFailure] != 1 {
		t.Fatalf("expected one transport failure counted, got %d", snap.Counters[MetricRefreshTransportFailure])
	}
	if snap.Counters[MetricRefreshSuccess] != 1 {
		t.Fatalf("expected one refresh success counted, got %d", snap.Counters[MetricRefreshSuccess])
	}
}

func TestRefreshMissingToken(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()

	_, err := engine.Refresh(context.Background(), "")
	if !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
}
