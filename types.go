package seatlock

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/preplabs/seatlock/internal/audit"
	internalmetrics "github.com/preplabs/seatlock/internal/metrics"
)

// TokenPair is the ephemeral credential pair owned by the client while
// valid. The server validates access tokens but never stores them; refresh
// tokens live only in the provider's own store.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// ExpiresIn is the access-token validity in seconds.
	ExpiresIn int64
}

// UserProfile is the denormalized user identity returned by the provider
// alongside tokens. It is cached client-side, never authoritative.
type UserProfile struct {
	ID    string
	Email string
	Role  string
}

// ProviderSession is what an [AuthProvider] returns for any credential
// exchange. Tokens is nil when the provider requires a confirmation step
// before issuing a session (registration-pending) — callers must treat
// that as "registered, not yet logged in", not as an error.
type ProviderSession struct {
	User   UserProfile
	Tokens *TokenPair
}

// AuthProvider is the external token issuer consumed by the engine. It is
// an opaque collaborator: seatlock never inspects token internals and
// never persists tokens.
//
// Error contract: definitive rejections (bad credentials, expired or
// revoked tokens) are returned as-is; connectivity failures must be
// wrapped with [ErrTransportFailure] so the engine and lifecycle manager
// can distinguish "rejected" from "unreachable".
type AuthProvider interface {
	Login(ctx context.Context, identifier, password string) (ProviderSession, error)
	Register(ctx context.Context, identifier, password string) (ProviderSession, error)
	ValidateAccess(ctx context.Context, accessToken string) (UserProfile, error)
	Refresh(ctx context.Context, refreshToken string) (ProviderSession, error)
	RevokeRefresh(ctx context.Context, refreshToken string) error
}

// AuthResult is returned by [Engine.Authorize] and [Engine.Heartbeat]. It
// carries the validated identity and the device that presented it.
type AuthResult struct {
	UserID   string
	Email    string
	Role     string
	DeviceID string

	// Bootstrap is true when the request passed because no claim row
	// exists for this user yet (see [GateConfig.RejectUnclaimed]).
	Bootstrap bool
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	User    UserProfile
	Session *TokenPair

	// PreviousDeviceID is the device that held the claim slot before this
	// login ("" for a first-time or same-device claim). A non-empty value
	// means this login displaced another device.
	PreviousDeviceID string
}

// RegisterResult is returned by [Engine.Register]. Pending is true when
// the provider withheld tokens until out-of-band confirmation; no claim
// slot is taken in that case.
type RegisterResult struct {
	User    UserProfile
	Session *TokenPair
	Pending bool
}

// RefreshResult is returned by [Engine.Refresh]: the rotated pair plus the
// provider's current view of the user profile.
type RefreshResult struct {
	User    UserProfile
	Session TokenPair
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that forwards events to a structured logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] emitting through logger (or
// [slog.Default] when nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant used by the session engine.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant used by the session engine.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricRegisterSuccess is an exported constant used by the session engine.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterPending is an exported constant used by the session engine.
	MetricRegisterPending = internalmetrics.MetricRegisterPending
	// MetricRegisterFailure is an exported constant used by the session engine.
	MetricRegisterFailure = internalmetrics.MetricRegisterFailure
	// MetricClaimOverwrite counts logins that displaced another device.
	MetricClaimOverwrite = internalmetrics.MetricClaimOverwrite
	// MetricGateAllowed is an exported constant used by the session engine.
	MetricGateAllowed = internalmetrics.MetricGateAllowed
	// MetricGateUnauthenticated is an exported constant used by the session engine.
	MetricGateUnauthenticated = internalmetrics.MetricGateUnauthenticated
	// MetricGateMalformed is an exported constant used by the session engine.
	MetricGateMalformed = internalmetrics.MetricGateMalformed
	// MetricGateDeviceMismatch is an exported constant used by the session engine.
	MetricGateDeviceMismatch = internalmetrics.MetricGateDeviceMismatch
	// MetricGateRegistryError counts fail-closed rejections on registry or
	// provider unavailability.
	MetricGateRegistryError = internalmetrics.MetricGateRegistryError
	// MetricGateBootstrapPass counts pass-throughs on absent claim rows.
	MetricGateBootstrapPass = internalmetrics.MetricGateBootstrapPass
	// MetricRefreshSuccess is an exported constant used by the session engine.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshRejected is an exported constant used by the session engine.
	MetricRefreshRejected = internalmetrics.MetricRefreshRejected
	// MetricRefreshTransportFailure is an exported constant used by the session engine.
	MetricRefreshTransportFailure = internalmetrics.MetricRefreshTransportFailure
	// MetricHeartbeat is an exported constant used by the session engine.
	MetricHeartbeat = internalmetrics.MetricHeartbeat
	// MetricLogout is an exported constant used by the session engine.
	MetricLogout = internalmetrics.MetricLogout
	// MetricRevoke is an exported constant used by the session engine.
	MetricRevoke = internalmetrics.MetricRevoke
	// MetricGateLatency is the gate latency histogram.
	MetricGateLatency = internalmetrics.MetricGateLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
