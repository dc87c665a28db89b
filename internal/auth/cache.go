package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionCacheKeyPrefix = "session:"

// SessionCache memoizes resolved sessions for a short window so every
// request does not pay for an upstream round trip. Cache errors are
// swallowed by callers: a cold or broken cache degrades to the
// upstream exchange, never to a failed request.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

// Get returns the cached session for an access token, or nil on miss
// or error.
func (sc *SessionCache) Get(ctx context.Context, accessToken string) *Session {
	if sc == nil || sc.client == nil {
		return nil
	}

	raw, err := sc.client.Get(ctx, cacheKey(accessToken)).Bytes()
	if err != nil {
		return nil
	}

	session := &Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil
	}
	return session
}

// Put stores a resolved session under the access token the client
// presented. That token may differ from session.AccessToken after a
// refresh grant rotated the pair; the cookie keeps presenting the old
// one, so the old one must stay the lookup key.
func (sc *SessionCache) Put(ctx context.Context, accessToken string, session *Session) {
	if sc == nil || sc.client == nil || session == nil {
		return
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	sc.client.Set(ctx, cacheKey(accessToken), raw, sc.ttl)
}

// Invalidate drops the cached session for an access token.
func (sc *SessionCache) Invalidate(ctx context.Context, accessToken string) {
	if sc == nil || sc.client == nil {
		return
	}
	sc.client.Del(ctx, cacheKey(accessToken))
}

// cacheKey hashes the access token so raw credentials never appear as
// Redis keys.
func cacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return sessionCacheKeyPrefix + hex.EncodeToString(sum[:])
}
