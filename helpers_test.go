package authflow

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChesterZhangz/authflow/credstore"
	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("authflow-test-key")

// stubBackend plays the server side: it mints HS256 access tokens, rotates
// refresh tokens on /refresh, and guards /protected behind bearer checks
// against the set of tokens it issued.
type stubBackend struct {
	t *testing.T

	mu           sync.Mutex
	refreshToken string
	validAccess  map[string]bool
	seq          int

	refreshCalls   int64
	protectedCalls int64

	failRefresh  atomic.Bool
	always401    atomic.Bool
	refreshDelay time.Duration

	lastRefreshAuth   string
	lastProtectedAuth string

	server *httptest.Server
}

func newStubBackend(t *testing.T) *stubBackend {
	t.Helper()

	b := &stubBackend{
		t:           t,
		validAccess: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /refresh", b.handleRefresh)
	mux.HandleFunc("/protected", b.handleProtected)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *stubBackend) refreshURL() string   { return b.server.URL + "/refresh" }
func (b *stubBackend) protectedURL() string { return b.server.URL + "/protected" }

func (b *stubBackend) refreshCount() int64   { return atomic.LoadInt64(&b.refreshCalls) }
func (b *stubBackend) protectedCount() int64 { return atomic.LoadInt64(&b.protectedCalls) }

// mint issues a fresh access/refresh pair and registers the access token as
// live.
func (b *stubBackend) mint(ttl time.Duration) (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mintLocked(ttl)
}

func (b *stubBackend) mintLocked(ttl time.Duration) (string, string) {
	b.seq++
	now := time.Now()
	claims := jwt.RegisteredClaims{
		// the ID keeps each minted token distinct within the same second
		ID:        fmt.Sprintf("%d", b.seq),
		Subject:   "u1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		b.t.Fatalf("sign failed: %v", err)
	}

	b.validAccess[access] = true
	b.refreshToken = fmt.Sprintf("rt-%d", b.seq)
	return access, b.refreshToken
}

// revoke marks an access token dead so the next guarded request 401s.
func (b *stubBackend) revoke(access string) {
	b.mu.Lock()
	delete(b.validAccess, access)
	b.mu.Unlock()
}

func (b *stubBackend) lastRefreshAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRefreshAuth
}

func (b *stubBackend) lastProtectedAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastProtectedAuth
}

func (b *stubBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&b.refreshCalls, 1)

	b.mu.Lock()
	b.lastRefreshAuth = r.Header.Get("Authorization")
	b.mu.Unlock()

	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}

	if b.failRefresh.Load() {
		http.Error(w, "refresh rejected", http.StatusUnauthorized)
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	if body.RefreshToken != b.refreshToken {
		b.mu.Unlock()
		http.Error(w, "unknown refresh token", http.StatusUnauthorized)
		return
	}
	access, refresh := b.mintLocked(time.Hour)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (b *stubBackend) handleProtected(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&b.protectedCalls, 1)

	auth := r.Header.Get("Authorization")
	b.mu.Lock()
	b.lastProtectedAuth = auth
	b.mu.Unlock()

	if b.always401.Load() {
		http.Error(w, "rejected", http.StatusUnauthorized)
		return
	}

	const pfx = "Bearer "
	if len(auth) <= len(pfx) || auth[:len(pfx)] != pfx {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	b.mu.Lock()
	live := b.validAccess[auth[len(pfx):]]
	b.mu.Unlock()
	if !live {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// newEchoServer starts a plain httptest server for header-inspection tests.
func newEchoServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// newTestClient builds a client against the stub backend with an in-memory
// store, metrics on, and any extra configuration applied via mutate.
func newTestClient(t *testing.T, backend *stubBackend, store credstore.Store, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Refresh.Endpoint = backend.refreshURL()
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	builder := New().WithConfig(cfg)
	if store != nil {
		builder = builder.WithStore(store)
	}

	client, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
