package flows

import (
	"context"
	"errors"
	"time"

	"github.com/preplabs/seatlock/registry"
)

// GateFailureKind classifies request-gate failures for root-level mapping.
type GateFailureKind int

const (
	GateFailureNone GateFailureKind = iota
	GateFailureMissingToken
	GateFailureMissingDevice
	GateFailureTokenInvalid
	GateFailureProviderUnavailable
	GateFailureRegistry
	GateFailureDeviceMismatch
	GateFailureUnclaimed
)

// GateIdentity is the flow-local validated identity shape.
type GateIdentity struct {
	UserID string
	Email  string
	Role   string
}

// GateResult carries either the validated identity or failure metadata.
type GateResult struct {
	Failure GateFailureKind
	Err     error

	Identity GateIdentity
	Claim    *registry.Claim

	// Bootstrap is true when the request passed because no claim row
	// exists for the user (pass-through allowance, see RejectUnclaimed).
	Bootstrap bool
}

type GateRegistryStore interface {
	Get(ctx context.Context, userID string) (*registry.Claim, error)
	Touch(ctx context.Context, userID string, now time.Time) error
}

// GateDeps captures request-gate dependencies.
type GateDeps struct {
	ValidateAccess  func(ctx context.Context, accessToken string) (GateIdentity, error)
	IsTransport     func(error) bool
	Now             func() time.Time
	RejectUnclaimed bool
	TouchOnPass     bool
	Registry        GateRegistryStore
	RegistryAbsent  error
}

// RunGate executes the per-request authorization decision. Checks run in
// order and short-circuit on the first failure:
//
//  1. missing bearer token
//  2. missing device identifier
//  3. token validation against the provider
//  4. device comparison against the registry claim
//
// Registry unavailability fails closed: a request is never allowed through
// on a registry error, since that would silently defeat the device lock.
func RunGate(ctx context.Context, accessToken, deviceID string, deps GateDeps) GateResult {
	if accessToken == "" {
		return GateResult{Failure: GateFailureMissingToken}
	}
	if deviceID == "" {
		return GateResult{Failure: GateFailureMissingDevice}
	}

	ident, err := deps.ValidateAccess(ctx, accessToken)
	if err != nil {
		if deps.IsTransport != nil && deps.IsTransport(err) {
			return GateResult{Failure: GateFailureProviderUnavailable, Err: err}
		}
		return GateResult{Failure: GateFailureTokenInvalid, Err: err}
	}

	claim, err := deps.Registry.Get(ctx, ident.UserID)
	if err != nil {
		if deps.RegistryAbsent != nil && errors.Is(err, deps.RegistryAbsent) {
			// No claim row was ever established for this user. Absence is
			// not revocation: the slot self-establishes on the next login.
			if deps.RejectUnclaimed {
				return GateResult{Failure: GateFailureUnclaimed, Identity: ident}
			}
			return GateResult{Identity: ident, Bootstrap: true}
		}
		return GateResult{Failure: GateFailureRegistry, Err: err, Identity: ident}
	}

	if claim.DeviceID != deviceID {
		return GateResult{
			Failure:  GateFailureDeviceMismatch,
			Identity: ident,
			Claim:    claim,
		}
	}

	if deps.TouchOnPass {
		if err := deps.Registry.Touch(ctx, ident.UserID, deps.Now()); err != nil {
			return GateResult{Failure: GateFailureRegistry, Err: err, Identity: ident}
		}
	}

	return GateResult{Identity: ident, Claim: claim}
}
