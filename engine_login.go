package seatlock

import (
	"context"
	"fmt"

	"github.com/preplabs/seatlock/internal/flows"
)

// Login exchanges credentials with the provider and atomically claims the
// session slot for deviceID. The claim is last-writer-wins: logging in
// from a second device displaces the first, whose next gated request will
// observe [ErrDeviceMismatch].
func (e *Engine) Login(ctx context.Context, identifier, password, deviceID string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: identifier and device identifier are required", ErrMalformedRequest)
	}

	deps := e.deps.Login
	deps.Exchange = func(ctx context.Context) (flows.LoginOutcome, error) {
		return e.providerExchange(e.provider.Login(ctx, identifier, password))
	}

	res := flows.RunLogin(ctx, deviceID, deps)
	switch res.Failure {
	case flows.LoginFailureNone:
		// A provider may never withhold tokens on plain login; treat it as
		// a provider contract violation rather than a pending state.
		if res.Pending {
			e.metricInc(MetricLoginFailure)
			return nil, fmt.Errorf("%w: provider returned no session for login", ErrProviderUnavailable)
		}

		e.metricInc(MetricLoginSuccess)
		if res.PrevDeviceID != "" {
			e.metricInc(MetricClaimOverwrite)
			e.emitAudit(ctx, auditEventDeviceTakeover, res.Identity.UserID, deviceID, true, "", map[string]string{
				"displaced_device_id": res.PrevDeviceID,
			})
		}
		e.emitAudit(ctx, auditEventLoginSuccess, res.Identity.UserID, deviceID, true, "", nil)

		return &LoginResult{
			User:             profileFromIdentity(res.Identity),
			Session:          tokenPairFromFlow(res.Tokens),
			PreviousDeviceID: res.PrevDeviceID,
		}, nil

	case flows.LoginFailureCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, "", deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, res.Err)

	case flows.LoginFailureProviderUnavailable:
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, res.Err)

	case flows.LoginFailureRegistry:
		// Tokens were issued but the claim write failed. Surfacing the
		// error keeps the policy consistent: without a claim row, the
		// device lock for this user is not yet established.
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, res.Identity.UserID, deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, res.Err)

	default:
		return nil, fmt.Errorf("%w: unknown login failure", ErrProviderUnavailable)
	}
}

// Register creates an account at the provider. When the provider issues
// tokens immediately, the slot is claimed exactly as in Login. When it
// withholds them pending confirmation, Register reports Pending and no
// claim is taken — "registered, not yet logged in" is a success, not an
// error.
func (e *Engine) Register(ctx context.Context, identifier, password, deviceID string) (*RegisterResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: identifier and device identifier are required", ErrMalformedRequest)
	}

	deps := e.deps.Login
	deps.Exchange = func(ctx context.Context) (flows.LoginOutcome, error) {
		return e.providerExchange(e.provider.Register(ctx, identifier, password))
	}

	res := flows.RunLogin(ctx, deviceID, deps)
	switch res.Failure {
	case flows.LoginFailureNone:
		if res.Pending {
			e.metricInc(MetricRegisterPending)
			e.emitAudit(ctx, auditEventRegisterPending, res.Identity.UserID, deviceID, true, "", nil)
			return &RegisterResult{
				User:    profileFromIdentity(res.Identity),
				Pending: true,
			}, nil
		}

		e.metricInc(MetricRegisterSuccess)
		e.emitAudit(ctx, auditEventRegisterSuccess, res.Identity.UserID, deviceID, true, "", nil)
		return &RegisterResult{
			User:    profileFromIdentity(res.Identity),
			Session: tokenPairFromFlow(res.Tokens),
		}, nil

	case flows.LoginFailureCredentials:
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, "", deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, res.Err)

	case flows.LoginFailureProviderUnavailable:
		e.metricInc(MetricRegisterFailure)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, res.Err)

	case flows.LoginFailureRegistry:
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, res.Identity.UserID, deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, res.Err)

	default:
		return nil, fmt.Errorf("%w: unknown register failure", ErrProviderUnavailable)
	}
}

func (e *Engine) providerExchange(ps ProviderSession, err error) (flows.LoginOutcome, error) {
	if err != nil {
		return flows.LoginOutcome{}, err
	}

	outcome := flows.LoginOutcome{
		Identity: flows.GateIdentity{
			UserID: ps.User.ID,
			Email:  ps.User.Email,
			Role:   ps.User.Role,
		},
	}
	if ps.Tokens != nil {
		outcome.Tokens = &flows.TokenPair{
			AccessToken:  ps.Tokens.AccessToken,
			RefreshToken: ps.Tokens.RefreshToken,
			ExpiresIn:    ps.Tokens.ExpiresIn,
		}
	}
	return outcome, nil
}

func profileFromIdentity(ident flows.GateIdentity) UserProfile {
	return UserProfile{
		ID:    ident.UserID,
		Email: ident.Email,
		Role:  ident.Role,
	}
}

func tokenPairFromFlow(t *flows.TokenPair) *TokenPair {
	if t == nil {
		return nil
	}
	return &TokenPair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
}
