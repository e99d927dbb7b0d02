//go:build integration
// +build integration

package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	authflow "github.com/ChesterZhangz/authflow"
	"github.com/ChesterZhangz/authflow/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var integrationKey = []byte("integration-test-key")

type tokenIssuer struct {
	t *testing.T

	mu           sync.Mutex
	refreshToken string
	validAccess  map[string]bool
	seq          int

	refreshCalls int64
	refreshDelay time.Duration

	server *httptest.Server
}

func newTokenIssuer(t *testing.T) *tokenIssuer {
	t.Helper()

	issuer := &tokenIssuer{
		t:           t,
		validAccess: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /refresh", issuer.handleRefresh)
	mux.HandleFunc("GET /protected", issuer.handleProtected)
	issuer.server = httptest.NewServer(mux)
	t.Cleanup(issuer.server.Close)

	return issuer
}

func (s *tokenIssuer) refreshURL() string   { return s.server.URL + "/refresh" }
func (s *tokenIssuer) protectedURL() string { return s.server.URL + "/protected" }
func (s *tokenIssuer) refreshCount() int64  { return atomic.LoadInt64(&s.refreshCalls) }

func (s *tokenIssuer) mint(ttl time.Duration) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mintLocked(ttl)
}

func (s *tokenIssuer) mintLocked(ttl time.Duration) (string, string) {
	s.seq++
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        fmt.Sprintf("%d", s.seq),
		Subject:   "u1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(integrationKey)
	if err != nil {
		s.t.Fatalf("sign failed: %v", err)
	}

	s.validAccess[access] = true
	s.refreshToken = fmt.Sprintf("rt-%d", s.seq)
	return access, s.refreshToken
}

func (s *tokenIssuer) revoke(access string) {
	s.mu.Lock()
	delete(s.validAccess, access)
	s.mu.Unlock()
}

func (s *tokenIssuer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.refreshCalls, 1)

	if s.refreshDelay > 0 {
		time.Sleep(s.refreshDelay)
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if body.RefreshToken != s.refreshToken {
		s.mu.Unlock()
		http.Error(w, "unknown refresh token", http.StatusUnauthorized)
		return
	}
	access, refresh := s.mintLocked(time.Hour)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (s *tokenIssuer) handleProtected(w http.ResponseWriter, r *http.Request) {
	const pfx = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(pfx) || auth[:len(pfx)] != pfx {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	live := s.validAccess[auth[len(pfx):]]
	s.mu.Unlock()
	if !live {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// newIntegrationClient wires a full client against miniredis-backed storage
// and the stub issuer.
func newIntegrationClient(t *testing.T, issuer *tokenIssuer) (*authflow.Client, *credstore.Redis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authflow.DefaultConfig()
	cfg.Refresh.Endpoint = issuer.refreshURL()
	cfg.Metrics.Enabled = true

	client, err := authflow.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	store, ok := client.Store().(*credstore.Redis)
	if !ok {
		t.Fatalf("expected a redis store, got %T", client.Store())
	}
	return client, store
}
