package authflow

import (
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Transport defines a public type used by authflow APIs.
//
// Transport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Transport struct {
	client *Client
	base   http.RoundTripper
}

// RoundTrip describes the roundtrip operation and its observable behavior.
//
// RoundTrip may return an error when input validation, dependency calls, or security checks fail.
// RoundTrip does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t == nil || t.client == nil {
		return nil, ErrClientNotReady
	}

	// refresh-endpoint exemption: the refresh call carries the refresh
	// token and must never recurse into 401 recovery
	if t.client.isRefreshRequest(req.URL) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()

	cred, err := t.client.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	attempt := req.Clone(ctx)
	t.decorate(attempt, cred.AccessToken, false)

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	retries := 0
	for resp.StatusCode == http.StatusUnauthorized && retries < t.client.config.Transport.MaxAuthRetries {
		t.client.metricInc(MetricCredentialRejected)
		t.client.emitAudit(ctx, auditEventCredentialRejected, false, req.URL.Path, nil, nil)

		if req.Body != nil && req.GetBody == nil {
			// body already consumed and not replayable; surface the
			// rejection as-is
			return resp, nil
		}

		drainAndClose(resp.Body)

		access, err := t.client.Token(ctx)
		if err != nil {
			// the refresh failure replaces the original rejection
			return nil, err
		}

		replay := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			replay.Body = body
		}
		// the replay always carries the refreshed token, never a stale one
		t.decorate(replay, access, true)

		t.client.metricInc(MetricRetryAfterRefresh)
		t.client.emitAudit(ctx, auditEventRetryAfterRefresh, true, req.URL.Path, nil, nil)

		resp, err = t.base.RoundTrip(replay)
		if err != nil {
			return nil, err
		}
		retries++
	}

	if resp.StatusCode == http.StatusUnauthorized && retries > 0 {
		t.client.metricInc(MetricRetryExhausted)
		t.client.emitAudit(ctx, auditEventRetryExhausted, false, req.URL.Path, ErrRetryExhausted, nil)
	}

	return resp, nil
}

// decorate attaches the bearer credential, correlation ID, and user agent.
// An Authorization header the caller set explicitly is kept unless force is
// set, which a post-refresh replay uses to swap in the fresh token.
func (t *Transport) decorate(req *http.Request, accessToken string, force bool) {
	cfg := t.client.config.Transport

	if accessToken != "" && (force || req.Header.Get("Authorization") == "") {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	if cfg.RequestIDHeader != "" && req.Header.Get(cfg.RequestIDHeader) == "" {
		requestID := requestIDFromContext(req.Context())
		if requestID == "" {
			requestID = uuid.NewString()
		}
		req.Header.Set(cfg.RequestIDHeader, requestID)
	}

	if cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
