package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any Redis transport or script failure. Callers
// on the request hot path must treat it as fatal for that request (fail
// closed) — never as an absent claim.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrClaimCorrupt is returned when a stored claim blob cannot be decoded.
var ErrClaimCorrupt = errors.New("claim blob corrupt")

const (
	touchStatusMissing int64 = 0
	touchStatusTouched int64 = 1
	touchStatusCorrupt int64 = -1
)

const putClaimScript = `
local prev = redis.call("GET", KEYS[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[1])
end
if prev then
  return prev
end
return false
`

var putClaimLua = redis.NewScript(putClaimScript)

const touchClaimScript = `
local function be64(n)
  local b = {}
  for i = 8, 1, -1 do
    b[i] = n % 256
    n = math.floor(n / 256)
  end
  return string.char(b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
end

local key = KEYS[1]
local now = tonumber(ARGV[1])
local idle_ms = tonumber(ARGV[2])

local data = redis.call("GET", key)
if not data then
  return 0
end
if #data < 9 then
  return -1
end

local updated = string.sub(data, 1, #data - 8) .. be64(now)

if idle_ms > 0 then
  redis.call("SET", key, updated, "PX", idle_ms)
else
  local ttl = redis.call("PTTL", key)
  if ttl > 0 then
    redis.call("SET", key, updated, "PX", ttl)
  else
    redis.call("SET", key, updated)
  end
end
return 1
`

var touchClaimLua = redis.NewScript(touchClaimScript)

// Store is the Redis-backed Session Registry: one claim row per user,
// upserted whole on every write so no read-modify-write window exists.
//
// All writes are last-writer-wins. Two near-simultaneous logins from two
// devices leave exactly one winner in the slot; the loser's subsequent
// requests observe a device mismatch at the gate.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	idleTTL time.Duration
}

// NewStore creates a registry Store backed by the given Redis client.
// prefix namespaces the keys. idleTTL, when positive, lets an untouched
// claim expire on its own; Touch re-arms the window on every heartbeat or
// authenticated request. Zero disables expiry (claims live until revoked
// or overwritten).
func NewStore(redis redis.UniversalClient, prefix string, idleTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "slk"
	}
	return &Store{
		redis:   redis,
		prefix:  prefix,
		idleTTL: idleTTL,
	}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":claim:" + userID
}

// Put unconditionally claims the slot for c.UserID. It returns the device
// ID that previously held the slot ("" when the slot was empty or held by
// the same device) so callers can audit takeovers.
//
//	Performance: 1 Lua EVALSHA (read prior + SET).
func (s *Store) Put(ctx context.Context, c *Claim) (prevDeviceID string, err error) {
	data, err := Encode(c)
	if err != nil {
		return "", err
	}

	result, err := putClaimLua.Run(
		ctx,
		s.redis,
		[]string{s.key(c.UserID)},
		data,
		s.idleTTL.Milliseconds(),
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Script returned false: first-time claim.
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var blob []byte
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		blob = []byte(v)
	case []byte:
		blob = v
	default:
		return "", fmt.Errorf("%w: invalid put script response", ErrRedisUnavailable)
	}

	prev, decErr := Decode(blob)
	if decErr != nil {
		// A corrupt prior blob was overwritten by this Put; the slot is
		// now consistent. Report no prior device rather than failing the
		// login that repaired it.
		return "", nil
	}
	if prev.DeviceID == c.DeviceID {
		return "", nil
	}
	return prev.DeviceID, nil
}

// Get fetches the claim for a user without mutating TTL or any Redis
// state. Returns redis.Nil when no claim exists — callers must keep that
// case distinct from ErrRedisUnavailable: absence means "no restriction
// established", unavailability means "fail closed".
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, userID string) (*Claim, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimCorrupt, err)
	}

	return c, nil
}

// Touch stamps the claim's last-seen field in place and re-arms the idle
// window, without changing the claimed device. Touching an absent claim
// is a no-op, not an error: the row may have been revoked between the
// gate check and the touch.
//
//	Performance: 1 Lua EVALSHA (in-place 8-byte rewrite).
func (s *Store) Touch(ctx context.Context, userID string, now time.Time) error {
	result, err := touchClaimLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		now.Unix(),
		s.idleTTL.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid touch script response", ErrRedisUnavailable)
	}

	switch code {
	case touchStatusMissing, touchStatusTouched:
		return nil
	case touchStatusCorrupt:
		return ErrClaimCorrupt
	default:
		return fmt.Errorf("%w: unknown touch script status", ErrRedisUnavailable)
	}
}

// Revoke deletes the claim row. Idempotent: revoking an absent claim
// succeeds. The next successful login re-claims the slot.
//
//	Performance: 1 Redis DEL.
func (s *Store) Revoke(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
