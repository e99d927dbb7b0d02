package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	authflow "github.com/ChesterZhangz/authflow"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var signingKey = []byte("loadtest-signing-key")

func main() {
	var (
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "total authenticated requests to issue")
		tokenTTL    = flag.Duration("token-ttl", 2*time.Second, "access token lifetime minted by the stub issuer")
		leeway      = flag.Duration("leeway", time.Second, "expiry lookahead window")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "af", "credential key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	issuer := newStubIssuer(*tokenTTL)
	server := issuer.start()
	defer server.Close()

	cfg := authflow.DefaultConfig()
	cfg.Refresh.Endpoint = server.URL + "/refresh"
	cfg.Expiry.Leeway = *leeway
	cfg.Store.RedisPrefix = *prefix

	client, err := authflow.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client build: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	// Seed the initial credential pair the way a login flow would.
	access, refresh := issuer.mint()
	if err := client.Store().Write(ctx, authflow.Credential{
		AccessToken:  access,
		RefreshToken: refresh,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed credential: %v\n", err)
		os.Exit(1)
	}

	stats := runRequestPhase(ctx, client, server.URL+"/protected", *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("request", stats)
	fmt.Printf("refresh round-trips served: %d\n", issuer.refreshCalls())

	snapshot := client.MetricsSnapshot()
	fmt.Printf("refresh success=%d shared-waiters=%d proactive=%d retry-after-refresh=%d\n",
		snapshot.Counters[authflow.MetricRefreshSuccess],
		snapshot.Counters[authflow.MetricRefreshShared],
		snapshot.Counters[authflow.MetricProactiveRefresh],
		snapshot.Counters[authflow.MetricRetryAfterRefresh],
	)
}

func runRequestPhase(ctx context.Context, client *authflow.Client, url string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				t0 := time.Now()
				resp, err := client.Do(req)
				d := time.Since(t0)
				if err != nil || resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&failures, 1)
				}
				if resp != nil {
					_ = resp.Body.Close()
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// stubIssuer plays the backend: it mints short-lived HS256 access tokens,
// rotates refresh tokens on /refresh, and guards /protected behind bearer
// validation.
type stubIssuer struct {
	ttl time.Duration

	mu       sync.Mutex
	refresh  string
	refreshN int64
}

func newStubIssuer(ttl time.Duration) *stubIssuer {
	return &stubIssuer{ttl: ttl}
}

func (s *stubIssuer) refreshCalls() int64 {
	return atomic.LoadInt64(&s.refreshN)
}

func (s *stubIssuer) mint() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mintLocked()
}

func (s *stubIssuer) mintLocked() (string, string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "load-user",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.refresh = fmt.Sprintf("rt-%d", now.UnixNano())
	return access, s.refresh
}

func (s *stubIssuer) start() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		if body.RefreshToken != s.refresh {
			s.mu.Unlock()
			http.Error(w, "unknown refresh token", http.StatusUnauthorized)
			return
		}
		access, refresh := s.mintLocked()
		s.mu.Unlock()

		atomic.AddInt64(&s.refreshN, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  access,
			"refreshToken": refresh,
		})
	})

	mux.HandleFunc("GET /protected", func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func bearerToken(h string) string {
	const pfx = "Bearer "
	if len(h) >= len(pfx) && h[:len(pfx)] == pfx {
		return h[len(pfx):]
	}
	return ""
}
