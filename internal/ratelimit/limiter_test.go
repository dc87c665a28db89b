package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(opts Options) (*Limiter, *time.Time) {
	l := New(opts)
	current := time.Now()
	l.now = func() time.Time { return current }
	return l, &current
}

func TestLimiter_FixedWindow(t *testing.T) {
	l, clock := newTestLimiter(Options{IPLimit: 3, IPWindow: time.Second})
	defer l.Stop()

	// limit=3: first three pass, fourth trips.
	assert.True(t, l.AllowIP("10.0.0.1"))
	assert.True(t, l.AllowIP("10.0.0.1"))
	assert.True(t, l.AllowIP("10.0.0.1"))
	assert.False(t, l.AllowIP("10.0.0.1"))

	// After the window elapses the count resets.
	*clock = clock.Add(1100 * time.Millisecond)
	assert.True(t, l.AllowIP("10.0.0.1"))
}

func TestLimiter_IndependentKeys(t *testing.T) {
	l, _ := newTestLimiter(Options{IPLimit: 1, IPWindow: time.Minute})
	defer l.Stop()

	assert.True(t, l.AllowIP("10.0.0.1"))
	assert.True(t, l.AllowIP("10.0.0.2"))
	assert.False(t, l.AllowIP("10.0.0.1"))
	assert.False(t, l.AllowIP("10.0.0.2"))
}

func TestLimiter_OverLimitCallsKeepCounting(t *testing.T) {
	l, clock := newTestLimiter(Options{IPLimit: 1, IPWindow: time.Second})
	defer l.Stop()

	assert.True(t, l.AllowIP("10.0.0.1"))
	for i := 0; i < 5; i++ {
		assert.False(t, l.AllowIP("10.0.0.1"))
	}

	// Rejected calls still incremented, but the reset wipes them all.
	*clock = clock.Add(2 * time.Second)
	assert.True(t, l.AllowIP("10.0.0.1"))
}

func TestLimiter_UserExemption(t *testing.T) {
	l, _ := newTestLimiter(Options{
		UserLimit:     1,
		UserWindow:    time.Minute,
		ExemptUserIDs: []string{"vip-user"},
	})
	defer l.Stop()

	for i := 0; i < 50; i++ {
		assert.True(t, l.AllowUser("vip-user"))
	}

	assert.True(t, l.AllowUser("normal-user"))
	assert.False(t, l.AllowUser("normal-user"))
}

func TestLimiter_AnonymousUserNotCounted(t *testing.T) {
	l, _ := newTestLimiter(Options{UserLimit: 1, UserWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.AllowUser(""))
	}
}

func TestLimiter_EndpointCompositeKey(t *testing.T) {
	l, _ := newTestLimiter(Options{EndpointLimit: 1, EndpointWindow: time.Minute})
	defer l.Stop()

	assert.True(t, l.AllowEndpoint("/api/posts", "10.0.0.1"))
	assert.False(t, l.AllowEndpoint("/api/posts", "10.0.0.1"))

	// Same endpoint, different IP: separate window.
	assert.True(t, l.AllowEndpoint("/api/posts", "10.0.0.2"))
	// Same IP, different endpoint: separate window.
	assert.True(t, l.AllowEndpoint("/api/comments", "10.0.0.1"))
}

func TestLimiter_SweepRemovesStaleWindows(t *testing.T) {
	l, clock := newTestLimiter(Options{IPLimit: 5, IPWindow: time.Second})
	defer l.Stop()

	l.AllowIP("10.0.0.1")
	l.AllowIP("10.0.0.2")

	*clock = clock.Add(11 * time.Minute)
	l.AllowIP("10.0.0.2") // touch one of them past the cutoff

	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.ip, "10.0.0.1")
	assert.Contains(t, l.ip, "10.0.0.2")
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := New(Options{})
	l.Stop()
	l.Stop()
}
