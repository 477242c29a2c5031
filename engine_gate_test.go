package seatlock

import (
	"context"
	"errors"
	"testing"
)

func TestGateRejectsSecondDevice(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := engine.Authorize(ctx, login.Session.AccessToken, "dev-1"); err != nil {
		t.Fatalf("authorize from claimed device: %v", err)
	}

	_, err = engine.Authorize(ctx, login.Session.AccessToken, "dev-2")
	if !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch from second device, got %v", err)
	}
}

func TestLastWriterWinsClaim(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	first, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login dev-1: %v", err)
	}
	second, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-2")
	if err != nil {
		t.Fatalf("login dev-2: %v", err)
	}
	if second.PreviousDeviceID != "dev-1" {
		t.Fatalf("expected takeover from dev-1, got %q", second.PreviousDeviceID)
	}

	// dev-1's token is still valid at the provider but its claim is gone.
	_, err = engine.Authorize(ctx, first.Session.AccessToken, "dev-1")
	if !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch for displaced device, got %v", err)
	}
	if _, err := engine.Authorize(ctx, second.Session.AccessToken, "dev-2"); err != nil {
		t.Fatalf("authorize from winning device: %v", err)
	}
}

func TestGateMissingTokenAndDevice(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	if _, err := engine.Authorize(ctx, "", "dev-1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for missing token, got %v", err)
	}
	if _, err := engine.Authorize(ctx, "some-token", ""); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for missing device, got %v", err)
	}
}

func TestGateInvalidTokenIsUnauthenticated(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()

	_, err := engine.Authorize(context.Background(), "at-never-issued", "dev-1")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("invalid token must not classify as device mismatch")
	}
}

func TestGateBootstrapAllowsUnclaimedUser(t *testing.T) {
	engine, provider, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	// Token issued out-of-band: no login ran, so no claim row exists.
	provider.mu.Lock()
	pair := provider.issue("user-42")
	provider.mu.Unlock()

	res, err := engine.Authorize(ctx, pair.AccessToken, "dev-9")
	if err != nil {
		t.Fatalf("expected bootstrap pass-through, got %v", err)
	}
	if !res.Bootstrap {
		t.Fatalf("expected Bootstrap flag on pass-through")
	}
}

func TestGateRejectUnclaimedPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Gate.RejectUnclaimed = true
	engine, provider, _, done := newTestEngine(t, cfg)
	defer done()

	provider.mu.Lock()
	pair := provider.issue("user-42")
	provider.mu.Unlock()

	_, err := engine.Authorize(context.Background(), pair.AccessToken, "dev-9")
	if !errors.Is(err, ErrSeatUnclaimed) {
		t.Fatalf("expected ErrSeatUnclaimed, got %v", err)
	}
}

func TestGateFailsClosedWhenRegistryDown(t *testing.T) {
	engine, _, mr, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	mr.Close()

	_, err = engine.Authorize(ctx, login.Session.AccessToken, "dev-1")
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Fatalf("expected fail-closed ErrRegistryUnavailable, got %v", err)
	}
}

func TestHeartbeatAdvancesLastSeen(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res, err := engine.Heartbeat(ctx, login.Session.AccessToken, "dev-1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if res.UserID != "user-42" {
		t.Fatalf("unexpected heartbeat identity %q", res.UserID)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricHeartbeat] != 1 {
		t.Fatalf("expected one heartbeat counted, got %d", snap.Counters[MetricHeartbeat])
	}
}

func TestSingleSeatScenario(t *testing.T) {
	// Full walk-through of the single-seat contract: claim, mismatch,
	// takeover, mismatch flips direction.
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	fromDev1, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login dev-1: %v", err)
	}
	if _, err := engine.Authorize(ctx, fromDev1.Session.AccessToken, "dev-1"); err != nil {
		t.Fatalf("dev-1 authorize: %v", err)
	}
	if _, err := engine.Authorize(ctx, fromDev1.Session.AccessToken, "dev-2"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("dev-2 with dev-1's token: expected mismatch, got %v", err)
	}

	fromDev2, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-2")
	if err != nil {
		t.Fatalf("login dev-2: %v", err)
	}
	if _, err := engine.Authorize(ctx, fromDev1.Session.AccessToken, "dev-1"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("dev-1 after takeover: expected mismatch, got %v", err)
	}
	if _, err := engine.Authorize(ctx, fromDev2.Session.AccessToken, "dev-2"); err != nil {
		t.Fatalf("dev-2 after takeover: %v", err)
	}
}
