package seatlock

import (
	"context"
	"fmt"

	"github.com/preplabs/seatlock/internal/flows"
)

// Logout vacates the user's claim slot and best-effort revokes the
// refresh token at the provider. refreshToken may be empty when the
// client no longer holds one. Idempotent: logging out an already-vacated
// user succeeds.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return fmt.Errorf("%w: user identifier is required", ErrMalformedRequest)
	}

	if err := flows.RunLogout(ctx, userID, refreshToken, e.deps.Logout); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, userID, "", true, "", nil)
	return nil
}

// RevokeUser is the administrative variant of Logout: it deletes the claim
// row without touching provider tokens. The next gated request from the
// user's device passes only via the bootstrap allowance (or is rejected
// when RejectUnclaimed is set); the next login re-claims the slot.
func (e *Engine) RevokeUser(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return fmt.Errorf("%w: user identifier is required", ErrMalformedRequest)
	}

	if err := e.registry.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventSessionRevoked, userID, "", true, "", nil)
	return nil
}
