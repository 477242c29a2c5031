package seatlock

import (
	"context"
	"fmt"
	"time"

	"github.com/preplabs/seatlock/internal/flows"
)

// Authorize is the Request Gate: the per-request authorization decision.
// It validates the access token against the provider, compares the
// caller's device against the registry claim, and stamps last-seen on
// success.
//
// The checks run in order and short-circuit: missing token, missing
// device identifier, token validity, device comparison. A device mismatch
// is reported as [ErrDeviceMismatch], deliberately distinct from
// [ErrUnauthenticated] — clients must respond to it with a forced logout,
// never a refresh attempt.
//
// Registry and provider unavailability fail closed ([ErrRegistryUnavailable],
// [ErrProviderUnavailable]): the device-lock policy is never silently
// bypassed because a backend was down.
func (e *Engine) Authorize(ctx context.Context, accessToken, deviceID string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunGate(ctx, accessToken, deviceID, e.deps.Gate)
	e.metricObserve(MetricGateLatency, time.Since(start))

	switch res.Failure {
	case flows.GateFailureNone:
		e.metricInc(MetricGateAllowed)
		if res.Bootstrap {
			e.metricInc(MetricGateBootstrapPass)
		}
		return &AuthResult{
			UserID:    res.Identity.UserID,
			Email:     res.Identity.Email,
			Role:      res.Identity.Role,
			DeviceID:  deviceID,
			Bootstrap: res.Bootstrap,
		}, nil

	case flows.GateFailureMissingToken:
		e.metricInc(MetricGateUnauthenticated)
		return nil, ErrUnauthenticated

	case flows.GateFailureMissingDevice:
		e.metricInc(MetricGateMalformed)
		return nil, fmt.Errorf("%w: missing device identifier", ErrMalformedRequest)

	case flows.GateFailureTokenInvalid:
		e.metricInc(MetricGateUnauthenticated)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, res.Err)

	case flows.GateFailureProviderUnavailable:
		e.metricInc(MetricGateRegistryError)
		e.emitAudit(ctx, auditEventGateFailedClosed, res.Identity.UserID, deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, res.Err)

	case flows.GateFailureRegistry:
		e.metricInc(MetricGateRegistryError)
		e.emitAudit(ctx, auditEventGateFailedClosed, res.Identity.UserID, deviceID, false, errString(res.Err), nil)
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, res.Err)

	case flows.GateFailureDeviceMismatch:
		e.metricInc(MetricGateDeviceMismatch)
		meta := map[string]string{}
		if res.Claim != nil {
			meta["claimed_device_id"] = res.Claim.DeviceID
		}
		e.emitAudit(ctx, auditEventDeviceMismatch, res.Identity.UserID, deviceID, false, "", meta)
		return nil, ErrDeviceMismatch

	case flows.GateFailureUnclaimed:
		e.metricInc(MetricGateUnauthenticated)
		return nil, ErrSeatUnclaimed

	default:
		return nil, fmt.Errorf("%w: unknown gate failure", ErrRegistryUnavailable)
	}
}

// Heartbeat validates the caller like [Engine.Authorize] and guarantees a
// last-seen stamp even when touch-on-pass is disabled. Intended for
// periodic client liveness calls.
func (e *Engine) Heartbeat(ctx context.Context, accessToken, deviceID string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res, err := e.Authorize(ctx, accessToken, deviceID)
	if err != nil {
		return nil, err
	}

	if e.config.Gate.DisableTouchOnPass && !res.Bootstrap {
		if err := e.registry.Touch(ctx, res.UserID, time.Now()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
		}
	}

	e.metricInc(MetricHeartbeat)
	return res, nil
}

func (e *Engine) providerValidate(ctx context.Context, accessToken string) (flows.GateIdentity, error) {
	profile, err := e.provider.ValidateAccess(ctx, accessToken)
	if err != nil {
		return flows.GateIdentity{}, err
	}
	return flows.GateIdentity{
		UserID: profile.ID,
		Email:  profile.Email,
		Role:   profile.Role,
	}, nil
}
