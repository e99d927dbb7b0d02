package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State defines a public type used by authflow APIs.
//
// State instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type State int

const (
	// StateValid is an exported constant or variable used by the refresh client.
	StateValid State = iota
	// StateExpiringSoon is an exported constant or variable used by the refresh client.
	StateExpiringSoon
	// StateExpired is an exported constant or variable used by the refresh client.
	StateExpired
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpiringSoon:
		return "expiring_soon"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Leeway is the lookahead buffer: a token whose remaining validity
	// is at or below Leeway evaluates to StateExpiringSoon. It absorbs
	// round-trip latency so a request begun just in time does not
	// expire mid-flight.
	Leeway time.Duration

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Evaluator defines a public type used by authflow APIs.
//
// Evaluator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Evaluator struct {
	leeway time.Duration
	now    func() time.Time
}

// DefaultLeeway is an exported constant or variable used by the refresh client.
const DefaultLeeway = 60 * time.Second

// NewEvaluator describes the newevaluator operation and its observable behavior.
//
// NewEvaluator may return an error when input validation, dependency calls, or security checks fail.
// NewEvaluator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Evaluator{
		leeway: cfg.Leeway,
		now:    cfg.Now,
	}, nil
}

// Evaluate describes the evaluate operation and its observable behavior.
//
// Evaluate may return an error when input validation, dependency calls, or security checks fail.
// Evaluate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Evaluator) Evaluate(tokenStr string) State {
	exp, ok := e.expiresAt(tokenStr)
	if !ok {
		return StateExpired
	}

	remaining := exp.Sub(e.now())
	switch {
	case remaining <= 0:
		return StateExpired
	case remaining <= e.leeway:
		return StateExpiringSoon
	default:
		return StateValid
	}
}

// Remaining describes the remaining operation and its observable behavior.
//
// Remaining may return an error when input validation, dependency calls, or security checks fail.
// Remaining does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Evaluator) Remaining(tokenStr string) (time.Duration, bool) {
	exp, ok := e.expiresAt(tokenStr)
	if !ok {
		return 0, false
	}
	return exp.Sub(e.now()), true
}

func (e *Evaluator) expiresAt(tokenStr string) (time.Time, bool) {
	if tokenStr == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
