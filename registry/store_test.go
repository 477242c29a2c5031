package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRegistryStoreTest(t *testing.T, idleTTL time.Duration) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "slk", idleTTL)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testClaim(userID, deviceID string) *Claim {
	now := time.Now()
	return &Claim{
		UserID:     userID,
		DeviceID:   deviceID,
		ClaimedAt:  now.Unix(),
		LastSeenAt: now.Unix(),
	}
}

func TestPutFirstClaimReportsNoPriorDevice(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	prev, err := store.Put(ctx, testClaim("user-42", "dev-1"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if prev != "" {
		t.Fatalf("expected empty prior device, got %q", prev)
	}

	got, err := store.Get(ctx, "user-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeviceID != "dev-1" {
		t.Fatalf("expected dev-1, got %q", got.DeviceID)
	}
}

func TestPutOverwriteReportsPriorDevice(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	if _, err := store.Put(ctx, testClaim("user-42", "dev-1")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	prev, err := store.Put(ctx, testClaim("user-42", "dev-2"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if prev != "dev-1" {
		t.Fatalf("expected prior device dev-1, got %q", prev)
	}

	got, err := store.Get(ctx, "user-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeviceID != "dev-2" {
		t.Fatalf("last writer must win, got %q", got.DeviceID)
	}
}

func TestPutSameDeviceIsIdempotent(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	if _, err := store.Put(ctx, testClaim("user-42", "dev-1")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	prev, err := store.Put(ctx, testClaim("user-42", "dev-1"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if prev != "" {
		t.Fatalf("same-device re-claim must not report a takeover, got %q", prev)
	}

	got, err := store.Get(ctx, "user-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DeviceID != "dev-1" {
		t.Fatalf("expected dev-1, got %q", got.DeviceID)
	}
}

func TestGetAbsentReturnsRedisNil(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()

	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for absent claim, got %v", err)
	}
}

func TestTouchAdvancesLastSeenOnly(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	c := testClaim("user-42", "dev-1")
	c.LastSeenAt = 1700000000
	c.ClaimedAt = 1700000000
	if _, err := store.Put(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	touchedAt := time.Unix(1700009999, 0)
	if err := store.Touch(ctx, "user-42", touchedAt); err != nil {
		t.Fatalf("touch: %v", err)
	}

	got, err := store.Get(ctx, "user-42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastSeenAt != touchedAt.Unix() {
		t.Fatalf("expected last seen %d, got %d", touchedAt.Unix(), got.LastSeenAt)
	}
	if got.DeviceID != "dev-1" {
		t.Fatalf("touch must not change the device, got %q", got.DeviceID)
	}
	if got.ClaimedAt != 1700000000 {
		t.Fatalf("touch must not change claimed-at, got %d", got.ClaimedAt)
	}
}

func TestTouchAbsentClaimIsNoOp(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()

	if err := store.Touch(context.Background(), "nobody", time.Now()); err != nil {
		t.Fatalf("touch on absent claim must be a no-op, got %v", err)
	}
}

func TestTouchExtendsIdleWindow(t *testing.T) {
	store, mr, done := newRegistryStoreTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	if _, err := store.Put(ctx, testClaim("user-42", "dev-1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(45 * time.Second)
	if err := store.Touch(ctx, "user-42", time.Now()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	// The untouched window would have expired here; the touch re-armed it.
	mr.FastForward(45 * time.Second)
	if _, err := store.Get(ctx, "user-42"); err != nil {
		t.Fatalf("claim expired despite touch: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "user-42"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected idle claim to expire, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, _, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	if _, err := store.Put(ctx, testClaim("user-42", "dev-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Revoke(ctx, "user-42"); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := store.Revoke(ctx, "user-42"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := store.Get(ctx, "user-42"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected absent claim after revoke, got %v", err)
	}
}

func TestGetFailsClosedWhenRedisDown(t *testing.T) {
	store, mr, done := newRegistryStoreTest(t, 0)
	defer done()
	ctx := context.Background()

	if _, err := store.Put(ctx, testClaim("user-42", "dev-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.Close()

	_, err := store.Get(ctx, "user-42")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
