package tokenfamily

import (
	"errors"
	"time"
)

// Config defines a public type used by tokenfamily APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token   TokenConfig
	Store   StoreConfig
	JWT     JWTConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by tokenfamily APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// TTL is the refresh-token lifetime. Every token in a family gets the
	// full TTL at issuance; rotation does not inherit the parent's deadline.
	TTL time.Duration
	// Pepper keys the BLAKE2b secret hash. Optional, at most 64 bytes.
	// Changing it invalidates every outstanding token.
	Pepper []byte
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by tokenfamily APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	// RedisPrefix namespaces every Redis key when the Engine builds its own
	// Redis store via [Builder.WithRedis].
	RedisPrefix string
	// RetentionGrace keeps consumed and revoked records readable past token
	// expiry so replay detection retains evidence. Redis-backed stores only.
	RetentionGrace time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by tokenfamily APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	// Enabled pairs a signed access token with every issued refresh token.
	// When false, Issued.AccessToken stays empty and callers mint their own.
	Enabled       bool
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by tokenfamily APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by tokenfamily APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			RedisPrefix:    "tf",
			RetentionGrace: 7 * 24 * time.Hour,
		},
		JWT: JWTConfig{
			Enabled:       false,
			AccessTTL:     10 * time.Minute,
			SigningMethod: "ed25519",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Pepper = cloneBytes(cfg.Token.Pepper)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if len(c.Token.Pepper) > 64 {
		return errors.New("token pepper exceeds 64 bytes")
	}
	if c.Store.RetentionGrace < 0 {
		return errors.New("retention grace must not be negative")
	}
	if c.JWT.Enabled {
		if c.JWT.AccessTTL <= 0 {
			return errors.New("access TTL must be positive when JWT is enabled")
		}
		if c.JWT.AccessTTL >= c.Token.TTL {
			return errors.New("access TTL must be shorter than refresh TTL")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
