package seatlock

import (
	"errors"
	"time"

	internalaudit "github.com/preplabs/seatlock/internal/audit"
	"github.com/preplabs/seatlock/internal/flows"
	internalmetrics "github.com/preplabs/seatlock/internal/metrics"
	"github.com/preplabs/seatlock/registry"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the first Engine method call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider  AuthProvider
	auditSink AuditSink

	built bool
}

// New creates a Builder preloaded with defaults: audit enabled with a
// drop-if-full 256-event buffer, metrics enabled, no idle TTL.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuthProvider sets the external token issuer. Required.
func (b *Builder) WithAuthProvider(p AuthProvider) *Builder {
	b.provider = p
	return b
}

// WithAuditSink sets the audit event consumer. Defaults to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and assembles the engine. A Builder
// must not be reused after a successful Build.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("seatlock: builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("seatlock: redis client is required")
	}
	if b.provider == nil {
		return nil, errors.New("seatlock: auth provider is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	store := registry.NewStore(b.redis, b.config.Registry.RedisPrefix, b.config.Registry.IdleTTL)

	e := &Engine{
		config:   b.config,
		provider: b.provider,
		registry: store,
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:       b.config.Metrics.Enabled,
			EnableLatency: b.config.Metrics.EnableLatencyHistograms,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
	}

	e.deps = flows.Deps{
		Gate: flows.GateDeps{
			ValidateAccess:  e.providerValidate,
			IsTransport:     IsTransportFailure,
			Now:             time.Now,
			RejectUnclaimed: b.config.Gate.RejectUnclaimed,
			TouchOnPass:     !b.config.Gate.DisableTouchOnPass,
			Registry:        store,
			RegistryAbsent:  redis.Nil,
		},
		Login: flows.LoginDeps{
			IsTransport: IsTransportFailure,
			Now:         time.Now,
			Registry:    store,
		},
		Refresh: flows.RefreshDeps{
			Exchange:    e.providerRefresh,
			IsTransport: IsTransportFailure,
			Now:         time.Now,
			Warn:        e.warn,
			Registry:    store,
		},
		Logout: flows.LogoutDeps{
			RevokeRefresh: b.provider.RevokeRefresh,
			Warn:          e.warn,
			Registry:      store,
		},
	}

	b.built = true
	return e, nil
}
