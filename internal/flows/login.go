package flows

import (
	"context"
	"time"

	"github.com/preplabs/seatlock/registry"
)

// TokenPair is the flow-local ephemeral credential shape. It is never
// persisted server-side; the provider owns refresh-token state.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// LoginFailureKind classifies login/register flow failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureCredentials
	LoginFailureProviderUnavailable
	LoginFailureRegistry
)

// LoginOutcome is what the provider returned for a credential exchange.
type LoginOutcome struct {
	Identity GateIdentity

	// Tokens is nil when the provider requires a confirmation step before
	// issuing a session (registration-pending). Callers must treat that as
	// "registered, not yet logged in", not as an error.
	Tokens *TokenPair
}

// LoginResult carries tokens plus the registry takeover outcome.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error

	Identity GateIdentity
	Tokens   *TokenPair

	// PrevDeviceID is the device that held the slot before this login
	// ("" when the slot was empty or already held by this device).
	PrevDeviceID string

	// Pending is true for confirmation-required registrations: no tokens
	// were issued and no slot was claimed.
	Pending bool
}

type LoginRegistryStore interface {
	Put(ctx context.Context, c *registry.Claim) (string, error)
}

// LoginDeps captures login/register flow dependencies.
type LoginDeps struct {
	Exchange    func(ctx context.Context) (LoginOutcome, error)
	IsTransport func(error) bool
	Now         func() time.Time
	Registry    LoginRegistryStore
}

// RunLogin exchanges credentials via the provider and atomically claims
// the registry slot for the caller's device. The claim is an unconditional
// upsert: a concurrent login from another device is resolved last-writer-
// wins, and the loser's next request observes a device mismatch.
func RunLogin(ctx context.Context, deviceID string, deps LoginDeps) LoginResult {
	outcome, err := deps.Exchange(ctx)
	if err != nil {
		if deps.IsTransport != nil && deps.IsTransport(err) {
			return LoginResult{Failure: LoginFailureProviderUnavailable, Err: err}
		}
		return LoginResult{Failure: LoginFailureCredentials, Err: err}
	}

	if outcome.Tokens == nil {
		return LoginResult{Identity: outcome.Identity, Pending: true}
	}

	now := deps.Now().Unix()
	prev, err := deps.Registry.Put(ctx, &registry.Claim{
		UserID:     outcome.Identity.UserID,
		DeviceID:   deviceID,
		ClaimedAt:  now,
		LastSeenAt: now,
	})
	if err != nil {
		return LoginResult{Failure: LoginFailureRegistry, Err: err, Identity: outcome.Identity}
	}

	return LoginResult{
		Identity:     outcome.Identity,
		Tokens:       outcome.Tokens,
		PrevDeviceID: prev,
	}
}
