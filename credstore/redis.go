package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisCorrupt is an exported constant or variable used by the credential store.
var ErrRedisCorrupt = errors.New("credential blob corrupt")

const invalidateScript = `
local existed = redis.call("EXISTS", KEYS[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  redis.call("PUBLISH", KEYS[2], "logout")
end
return existed
`

var invalidateLua = redis.NewScript(invalidateScript)

// Redis defines a public type used by authflow APIs.
//
// Redis instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis describes the newredis operation and its observable behavior.
//
// NewRedis may return an error when input validation, dependency calls, or security checks fail.
// NewRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "af"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) credentialKey() string {
	return r.prefix + ":cred"
}

func (r *Redis) logoutChannel() string {
	return r.prefix + ":logout"
}

// Read describes the read operation and its observable behavior.
//
// Read may return an error when input validation, dependency calls, or security checks fail.
// Read does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Redis) Read(ctx context.Context) (Credential, error) {
	data, err := r.client.Get(ctx, r.credentialKey()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Credential{}, nil
	case err != nil:
		return Credential{}, errors.Join(ErrStoreUnavailable, err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, ErrRedisCorrupt
	}
	return cred, nil
}

// Write describes the write operation and its observable behavior.
//
// Write may return an error when input validation, dependency calls, or security checks fail.
// Write does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Redis) Write(ctx context.Context, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	// single-key SET: readers observe the old blob or the new blob,
	// never a partial write
	if err := r.client.Set(ctx, r.credentialKey(), data, r.ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Invalidate describes the invalidate operation and its observable behavior.
//
// Invalidate may return an error when input validation, dependency calls, or security checks fail.
// Invalidate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Redis) Invalidate(ctx context.Context) error {
	keys := []string{r.credentialKey(), r.logoutChannel()}
	if err := invalidateLua.Run(ctx, r.client, keys).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SubscribeLogout describes the subscribelogout operation and its observable behavior.
//
// SubscribeLogout may return an error when input validation, dependency calls, or security checks fail.
// SubscribeLogout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Redis) SubscribeLogout(ctx context.Context) (<-chan struct{}, func()) {
	sub := r.client.Subscribe(ctx, r.logoutChannel())
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
