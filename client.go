package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/ChesterZhangz/authflow/credstore"
	"github.com/ChesterZhangz/authflow/internal/coordinate"
	"github.com/ChesterZhangz/authflow/token"
)

// Client defines a public type used by authflow APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config      Config
	store       credstore.Store
	evaluator   *token.Evaluator
	coordinator *coordinate.Coordinator
	audit       *auditDispatcher
	metrics     *Metrics

	refreshURL    *url.URL
	authClient    *http.Client
	refreshClient *http.Client
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// Token describes the token operation and its observable behavior.
//
// Token may return an error when input validation, dependency calls, or security checks fail.
// Token does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c == nil || c.coordinator == nil {
		return "", ErrClientNotReady
	}

	access, err := c.coordinator.Obtain(ctx)
	if err != nil {
		if errors.Is(err, coordinate.ErrNoRefreshToken) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	return access, nil
}

// EnsureFresh describes the ensurefresh operation and its observable behavior.
//
// EnsureFresh may return an error when input validation, dependency calls, or security checks fail.
// EnsureFresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) EnsureFresh(ctx context.Context) (string, error) {
	if c == nil || c.coordinator == nil {
		return "", ErrClientNotReady
	}

	cred, err := c.store.Read(ctx)
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}

	state := c.evaluator.Evaluate(cred.AccessToken)
	if state == token.StateValid {
		return cred.AccessToken, nil
	}

	c.metricInc(MetricProactiveRefresh)
	c.emitAudit(ctx, auditEventProactiveRefresh, true, "", nil, func() map[string]string {
		return map[string]string{
			"state": state.String(),
		}
	})
	return c.Token(ctx)
}

// State describes the state operation and its observable behavior.
//
// State may return an error when input validation, dependency calls, or security checks fail.
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) State(ctx context.Context) (TokenState, error) {
	if c == nil || c.evaluator == nil {
		return TokenExpired, ErrClientNotReady
	}

	cred, err := c.store.Read(ctx)
	if err != nil {
		return TokenExpired, errors.Join(ErrStoreUnavailable, err)
	}
	return c.evaluator.Evaluate(cred.AccessToken), nil
}

// Do describes the do operation and its observable behavior.
//
// Do may return an error when input validation, dependency calls, or security checks fail.
// Do does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c == nil || c.authClient == nil {
		return nil, ErrClientNotReady
	}
	return c.authClient.Do(req)
}

// HTTPClient describes the httpclient operation and its observable behavior.
//
// HTTPClient may return an error when input validation, dependency calls, or security checks fail.
// HTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) HTTPClient() *http.Client {
	if c == nil {
		return nil
	}
	return c.authClient
}

// Store describes the store operation and its observable behavior.
//
// Store may return an error when input validation, dependency calls, or security checks fail.
// Store does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Store() credstore.Store {
	if c == nil {
		return nil
	}
	return c.store
}

/*
====================================
COORDINATOR WIRING
====================================
*/

func (c *Client) coordinatorDeps() coordinate.Deps {
	return coordinate.Deps{
		ReadRefreshToken: func(ctx context.Context) (string, error) {
			cred, err := c.store.Read(ctx)
			if err != nil {
				return "", errors.Join(ErrStoreUnavailable, err)
			}
			if cred.RefreshToken == "" {
				c.metricInc(MetricRefreshUnauthenticated)
				c.emitAudit(ctx, auditEventUnauthenticated, false, "", ErrUnauthenticated, nil)
			}
			return cred.RefreshToken, nil
		},
		Refresh: func(ctx context.Context, refreshToken string) (string, string, error) {
			start := time.Now()
			access, refresh, err := c.refreshCredential(ctx, refreshToken)
			if c.metrics != nil {
				c.metrics.Observe(MetricRefreshLatency, time.Since(start))
			}
			if err != nil {
				c.metricInc(MetricRefreshFailure)
				c.emitAudit(ctx, auditEventRefreshFailed, false, c.config.Refresh.Endpoint, err, nil)
				return "", "", err
			}
			c.metricInc(MetricRefreshSuccess)
			c.emitAudit(ctx, auditEventRefreshSuccess, true, c.config.Refresh.Endpoint, nil, nil)
			return access, refresh, nil
		},
		StoreCredential: func(ctx context.Context, access, refresh string) error {
			if err := c.store.Write(ctx, Credential{
				AccessToken:  access,
				RefreshToken: refresh,
			}); err != nil {
				return errors.Join(ErrStoreUnavailable, err)
			}
			return nil
		},
		Invalidate: func(ctx context.Context) {
			if err := c.store.Invalidate(ctx); err != nil {
				log.Print("authflow: session invalidation failed after refresh failure")
			}
			c.metricInc(MetricSessionInvalidated)
			c.emitAudit(ctx, auditEventSessionInvalidated, false, "", nil, nil)
		},
		OnShared: func(waiters int) {
			if c.metrics != nil {
				c.metrics.Add(MetricRefreshShared, uint64(waiters))
			}
		},
		Warn: func(msg string) {
			log.Print("authflow: " + msg)
		},
	}
}

/*
====================================
REFRESH WIRE CALL
====================================
*/

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshCredential performs the single refresh network round-trip. It
// carries the refresh token, never the access token, and goes through the
// base transport so it can never recurse into 401 recovery.
func (c *Client) refreshCredential(ctx context.Context, refreshToken string) (string, string, error) {
	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", "", errors.Join(ErrRefreshFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Refresh.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", errors.Join(ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Transport.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.Transport.UserAgent)
	}

	resp, err := c.refreshClient.Do(req)
	if err != nil {
		// a timed-out refresh is a refresh failure
		return "", "", errors.Join(ErrRefreshFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("%w: refresh endpoint returned status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", "", errors.Join(ErrRefreshFailed, err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return "", "", fmt.Errorf("%w: refresh response missing token pair", ErrRefreshFailed)
	}

	return body.AccessToken, body.RefreshToken, nil
}

func (c *Client) isRefreshRequest(u *url.URL) bool {
	if c == nil || c.refreshURL == nil || u == nil {
		return false
	}
	return u.Scheme == c.refreshURL.Scheme &&
		u.Host == c.refreshURL.Host &&
		u.Path == c.refreshURL.Path
}
