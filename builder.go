package authflow

import (
	"net/http"
	"net/url"

	"github.com/ChesterZhangz/authflow/credstore"
	"github.com/ChesterZhangz/authflow/internal/coordinate"
	"github.com/ChesterZhangz/authflow/token"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by authflow APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  credstore.Store

	httpClient *http.Client
	auditSink  AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRefreshEndpoint describes the withrefreshendpoint operation and its observable behavior.
//
// WithRefreshEndpoint may return an error when input validation, dependency calls, or security checks fail.
// WithRefreshEndpoint does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRefreshEndpoint(endpoint string) *Builder {
	b.config.Refresh.Endpoint = endpoint
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient may return an error when input validation, dependency calls, or security checks fail.
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	refreshURL, err := url.Parse(cfg.Refresh.Endpoint)
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	if store == nil {
		if b.redis != nil {
			store = credstore.NewRedis(b.redis, cfg.Store.RedisPrefix, cfg.Store.RedisTTL)
		} else {
			store = credstore.NewMemory()
		}
	}

	// -------- EXPIRY EVALUATOR --------
	evaluator, err := token.NewEvaluator(token.Config{
		Leeway: cfg.Expiry.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- TRANSPORT --------
	base := http.DefaultTransport
	if b.httpClient != nil && b.httpClient.Transport != nil {
		base = b.httpClient.Transport
	}

	client := &Client{
		config:     cfg,
		store:      store,
		evaluator:  evaluator,
		refreshURL: refreshURL,
	}

	client.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	client.metrics = NewMetrics(cfg.Metrics)
	client.coordinator = coordinate.New(client.coordinatorDeps())

	client.refreshClient = &http.Client{
		Transport: base,
		Timeout:   cfg.Transport.Timeout,
	}
	client.authClient = &http.Client{
		Transport: &Transport{client: client, base: base},
		Timeout:   cfg.Transport.Timeout,
	}

	b.built = true

	return client, nil
}
