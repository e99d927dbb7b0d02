package authflow

import (
	"errors"
	"net/url"
	"time"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Refresh   RefreshConfig
	Expiry    ExpiryConfig
	Transport TransportConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by authflow APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	// Endpoint is the absolute URL of the refresh endpoint. Requests to
	// this URL are exempt from bearer attachment and 401 recovery.
	Endpoint string
}

/*
====================================
EXPIRY CONFIG
====================================
*/

// ExpiryConfig defines a public type used by authflow APIs.
//
// ExpiryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ExpiryConfig struct {
	// Leeway is the proactive-refresh lookahead buffer. A token within
	// Leeway of its deadline is refreshed ahead of use.
	Leeway time.Duration
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig defines a public type used by authflow APIs.
//
// TransportConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TransportConfig struct {
	// Timeout bounds every network call, the refresh call included. A
	// timed-out refresh is a refresh failure.
	Timeout time.Duration

	// MaxAuthRetries caps credential-refresh replays per request.
	MaxAuthRetries int

	// RequestIDHeader names the correlation-ID header attached to
	// outgoing requests. Empty disables attachment.
	RequestIDHeader string

	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string
}

// StoreConfig defines a public type used by authflow APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix string
	RedisTTL    time.Duration
}

// AuditConfig defines a public type used by authflow APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authflow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Refresh: RefreshConfig{},
		Expiry: ExpiryConfig{
			Leeway: 60 * time.Second,
		},
		Transport: TransportConfig{
			Timeout:         15 * time.Second,
			MaxAuthRetries:  1,
			RequestIDHeader: "X-Request-ID",
		},
		Store: StoreConfig{
			RedisPrefix: "af",
			RedisTTL:    0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Refresh
	if c.Refresh.Endpoint == "" {
		return errors.New("Refresh Endpoint must be set")
	}
	u, err := url.Parse(c.Refresh.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("Refresh Endpoint must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Refresh Endpoint must use http or https")
	}

	// Expiry
	if c.Expiry.Leeway < 0 {
		return errors.New("Expiry Leeway must be >= 0")
	}
	if c.Expiry.Leeway > 15*time.Minute {
		return errors.New("Expiry Leeway must be <= 15m")
	}

	// Transport
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}
	if c.Transport.MaxAuthRetries < 0 || c.Transport.MaxAuthRetries > 3 {
		return errors.New("Transport MaxAuthRetries must be in [0, 3]")
	}

	// Store
	if c.Store.RedisPrefix == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}
	if c.Store.RedisTTL < 0 {
		return errors.New("Store RedisTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
