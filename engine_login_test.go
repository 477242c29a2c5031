package seatlock

import (
	"context"
	"errors"
	"testing"
)

func TestLoginClaimIsIdempotentPerDevice(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	first, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.PreviousDeviceID != "" || second.PreviousDeviceID != "" {
		t.Fatalf("same-device logins must not report takeovers: %q, %q",
			first.PreviousDeviceID, second.PreviousDeviceID)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricClaimOverwrite] != 0 {
		t.Fatalf("expected no claim overwrites, got %d", snap.Counters[MetricClaimOverwrite])
	}
}

func TestLoginBadCredentials(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()

	_, err := engine.Login(context.Background(), "alice@example.com", "wrong", "dev-1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginProviderDownIsTransportClass(t *testing.T) {
	engine, provider, _, done := newTestEngine(t, testConfig())
	defer done()

	provider.setDown(true)
	_, err := engine.Login(context.Background(), "alice@example.com", "correct-password-123", "dev-1")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("transport failure must not classify as bad credentials")
	}
}

func TestLoginMissingInputs(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	if _, err := engine.Login(ctx, "", "pw", "dev-1"); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for missing identifier, got %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "pw", ""); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for missing device, got %v", err)
	}
}

func TestRegisterIssuesSessionAndClaims(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	res, err := engine.Register(ctx, "bob@example.com", "a-fine-password", "dev-7")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Pending {
		t.Fatalf("expected immediate session, got pending")
	}
	if res.Session == nil || res.Session.AccessToken == "" {
		t.Fatalf("expected token pair on registration")
	}

	// The slot was claimed: another device with this token mismatches.
	if _, err := engine.Authorize(ctx, res.Session.AccessToken, "dev-8"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected mismatch after register claim, got %v", err)
	}
}

func TestRegisterPendingConfirmationClaimsNothing(t *testing.T) {
	engine, provider, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	provider.mu.Lock()
	provider.pendingUsers["carol@example.com"] = true
	provider.mu.Unlock()

	res, err := engine.Register(ctx, "carol@example.com", "a-fine-password", "dev-7")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !res.Pending {
		t.Fatalf("expected pending registration")
	}
	if res.Session != nil {
		t.Fatalf("pending registration must not carry tokens")
	}

	// No claim row was established; an out-of-band token passes via
	// bootstrap from any device.
	provider.mu.Lock()
	pair := provider.issue(res.User.ID)
	provider.mu.Unlock()
	got, err := engine.Authorize(ctx, pair.AccessToken, "dev-anything")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !got.Bootstrap {
		t.Fatalf("expected bootstrap pass, claim must not exist yet")
	}
}

func TestLogoutVacatesSlotForReclaim(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig())
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := engine.Logout(ctx, login.User.ID, login.Session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := engine.Logout(ctx, login.User.ID, ""); err != nil {
		t.Fatalf("repeated logout must be a no-op: %v", err)
	}

	relogin, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-2")
	if err != nil {
		t.Fatalf("re-login: %v", err)
	}
	if relogin.PreviousDeviceID != "" {
		t.Fatalf("slot was vacated; expected clean claim, got takeover from %q", relogin.PreviousDeviceID)
	}
}

func TestRevokeUserForcesMismatchPathOnlyAfterRelogin(t *testing.T) {
	cfg := testConfig()
	cfg.Gate.RejectUnclaimed = true
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()
	ctx := context.Background()

	login, err := engine.Login(ctx, "alice@example.com", "correct-password-123", "dev-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := engine.RevokeUser(ctx, login.User.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, err = engine.Authorize(ctx, login.Session.AccessToken, "dev-1")
	if !errors.Is(err, ErrSeatUnclaimed) {
		t.Fatalf("expected ErrSeatUnclaimed under RejectUnclaimed, got %v", err)
	}
}
