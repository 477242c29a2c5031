package seatlock

import (
	"context"
	"fmt"

	"github.com/preplabs/seatlock/internal/flows"
)

// Refresh exchanges a refresh token for a new pair via the provider. The
// input is solely the refresh token; no device check runs here — a device
// mismatch is a gate concern, and refreshing must never be the recovery
// path for it.
//
// Error classification is the whole point of this method:
// [ErrRefreshRejected] means the refresh token itself is dead (terminal
// for the session), while [ErrTransportFailure] means the provider was
// unreachable and the client must keep its state untouched.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.deps.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, res.Identity.UserID, "", true, "", nil)
		return &RefreshResult{
			User: profileFromIdentity(res.Identity),
			Session: TokenPair{
				AccessToken:  res.Tokens.AccessToken,
				RefreshToken: res.Tokens.RefreshToken,
				ExpiresIn:    res.Tokens.ExpiresIn,
			},
		}, nil

	case flows.RefreshFailureMalformed:
		return nil, fmt.Errorf("%w: missing refresh token", ErrMalformedRequest)

	case flows.RefreshFailureRejected:
		e.metricInc(MetricRefreshRejected)
		e.emitAudit(ctx, auditEventRefreshRejected, "", "", false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, res.Err)

	case flows.RefreshFailureTransport:
		e.metricInc(MetricRefreshTransportFailure)
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, res.Err)

	default:
		return nil, fmt.Errorf("%w: unknown refresh failure", ErrProviderUnavailable)
	}
}

func (e *Engine) providerRefresh(ctx context.Context, refreshToken string) (flows.RefreshOutcome, error) {
	ps, err := e.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return flows.RefreshOutcome{}, err
	}
	if ps.Tokens == nil {
		return flows.RefreshOutcome{}, fmt.Errorf("%w: provider returned no session for refresh", ErrTransportFailure)
	}

	return flows.RefreshOutcome{
		Identity: flows.GateIdentity{
			UserID: ps.User.ID,
			Email:  ps.User.Email,
			Role:   ps.User.Role,
		},
		Tokens: flows.TokenPair{
			AccessToken:  ps.Tokens.AccessToken,
			RefreshToken: ps.Tokens.RefreshToken,
			ExpiresIn:    ps.Tokens.ExpiresIn,
		},
	}, nil
}
