package seatlock

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrUnauthenticated covers a missing, expired, or otherwise invalid
	// access token. Locally recoverable: the client may attempt one refresh.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMalformedRequest covers missing required inputs (device header,
	// identifier). A caller bug, not a session-state transition.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrDeviceMismatch means the token is valid but presented from a device
	// other than the one holding the claim. NOT recoverable by refresh — the
	// client must force a logout and surface "logged in elsewhere".
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrSeatUnclaimed is returned only when [GateConfig.RejectUnclaimed] is
	// set and no claim row exists for the user.
	ErrSeatUnclaimed = errors.New("no device claim established")
	// ErrInvalidCredentials is returned when the provider rejects a login
	// or registration credential exchange.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshRejected means the refresh token itself is no longer valid.
	// Terminal for the session: the client clears all local state.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrTransportFailure marks network or connectivity errors. Never a
	// session-terminating condition; callers retry on the next natural
	// trigger and leave session state untouched.
	ErrTransportFailure = errors.New("transport failure")
	// ErrProviderUnavailable wraps provider transport failures observed on
	// the server side. Requests fail closed.
	ErrProviderUnavailable = errors.New("auth provider unavailable")
	// ErrRegistryUnavailable wraps registry read/write failures on the hot
	// path. Requests fail closed.
	ErrRegistryUnavailable = errors.New("session registry unavailable")
	// ErrEngineNotReady is an exported constant used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// IsTransportFailure reports whether err is a connectivity-class failure
// rather than a definitive rejection. Providers should wrap transport
// errors with [ErrTransportFailure]; raw net errors and deadline expiry
// are recognized as a fallback.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransportFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
