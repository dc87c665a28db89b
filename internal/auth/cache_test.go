package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionCache(client, time.Minute), mr
}

func TestSessionCache_PutGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	session := &Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         User{ID: "user-1", Role: RoleFree, PrivilegeRole: PrivilegeUser},
	}
	cache.Put(ctx, "access-token", session)

	got := cache.Get(ctx, "access-token")
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.User.ID)
	assert.Equal(t, RoleFree, got.User.Role)
}

func TestSessionCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)
	assert.Nil(t, cache.Get(context.Background(), "unknown-token"))
}

func TestSessionCache_KeysAreHashed(t *testing.T) {
	cache, mr := newTestCache(t)
	cache.Put(context.Background(), "secret-credential", &Session{AccessToken: "secret-credential"})

	for _, key := range mr.Keys() {
		assert.False(t, strings.Contains(key, "secret-credential"), "raw credential leaked into key %q", key)
	}
}

func TestSessionCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "access-token", &Session{AccessToken: "access-token"})
	mr.FastForward(2 * time.Minute)

	assert.Nil(t, cache.Get(ctx, "access-token"))
}

func TestSessionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "access-token", &Session{AccessToken: "access-token"})
	cache.Invalidate(ctx, "access-token")

	assert.Nil(t, cache.Get(ctx, "access-token"))
}

func TestSessionCache_NilCacheIsInert(t *testing.T) {
	var cache *SessionCache
	ctx := context.Background()

	// All operations on a disabled cache are no-ops.
	cache.Put(ctx, "x", &Session{AccessToken: "x"})
	cache.Invalidate(ctx, "x")
	assert.Nil(t, cache.Get(ctx, "x"))
}
