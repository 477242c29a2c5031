package seatlock

import (
	"errors"
	"time"
)

// Config defines engine behavior. Instances are intended to be configured
// during initialization and then treated as immutable.
type Config struct {
	Registry RegistryConfig
	Gate     GateConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// Warn receives background failure notices (slog-style key/value
	// pairs). Defaults to a slog warning when nil.
	Warn func(msg string, args ...any)
}

/*
====================================
REGISTRY CONFIG
====================================
*/

// RegistryConfig controls the Redis-backed claim store.
type RegistryConfig struct {
	// RedisPrefix namespaces claim keys. Defaults to "slk".
	RedisPrefix string

	// IdleTTL lets an untouched claim expire on its own; every heartbeat
	// or gated request re-arms the window. Zero means claims persist
	// until logout, revocation, or overwrite.
	IdleTTL time.Duration
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig controls the per-request authorization decision.
type GateConfig struct {
	// RejectUnclaimed rejects requests from users with no claim row
	// instead of passing them through. The default (false) preserves the
	// bootstrap allowance: an absent row means "no restriction
	// established", letting a device establish its first claim lazily at
	// the next login.
	RejectUnclaimed bool

	// DisableTouchOnPass skips the last-seen stamp on successful gate
	// checks. Leave unset in production: without touches, IdleTTL would
	// expire claims under active use.
	DisableTouchOnPass bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metric collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Registry: RegistryConfig{
			RedisPrefix: "slk",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; the func field is shared intentionally.
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Registry.IdleTTL < 0 {
		return errors.New("registry idle TTL must not be negative")
	}
	if cfg.Registry.IdleTTL > 0 && cfg.Registry.IdleTTL < time.Second {
		return errors.New("registry idle TTL below one second would expire claims between touches")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must not be negative")
	}
	return nil
}
