package flows

import (
	"context"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMalformed
	RefreshFailureRejected
	RefreshFailureTransport
)

// RefreshOutcome is what the provider returned for a refresh exchange.
type RefreshOutcome struct {
	Identity GateIdentity
	Tokens   TokenPair
}

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error

	Identity GateIdentity
	Tokens   TokenPair
}

type RefreshRegistryStore interface {
	Touch(ctx context.Context, userID string, now time.Time) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Exchange    func(ctx context.Context, refreshToken string) (RefreshOutcome, error)
	IsTransport func(error) bool
	Now         func() time.Time
	Warn        func(msg string, args ...any)
	Registry    RefreshRegistryStore
}

// RunRefresh delegates rotation to the provider and classifies the outcome.
// A rejected refresh token is terminal for the session; a transport failure
// is not — the distinction is what keeps offline clients logged in.
//
// On success the registry claim's last-seen stamp is touched best-effort:
// refresh is not a gated request, so a touch failure is logged rather than
// surfaced.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMalformed}
	}

	outcome, err := deps.Exchange(ctx, refreshToken)
	if err != nil {
		if deps.IsTransport != nil && deps.IsTransport(err) {
			return RefreshResult{Failure: RefreshFailureTransport, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureRejected, Err: err}
	}

	if deps.Registry != nil {
		if err := deps.Registry.Touch(ctx, outcome.Identity.UserID, deps.Now()); err != nil && deps.Warn != nil {
			deps.Warn("seatlock: refresh touch failed", "user_id", outcome.Identity.UserID, "error", err)
		}
	}

	return RefreshResult{
		Identity: outcome.Identity,
		Tokens:   outcome.Tokens,
	}
}
