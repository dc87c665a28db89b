package sessionclient

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(d).Unix(),
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestStore_SetAndCurrent(t *testing.T) {
	s := New(Options{})
	defer s.Clear()

	assert.Nil(t, s.Current())

	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour), User: User{ID: "user-1"}})
	require.NotNil(t, s.Current())
	assert.Equal(t, "user-1", s.Current().User.ID)
}

func TestStore_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"fresh token", "", false},
		{"inside expiry lead", "", true},
		{"past expiry", "", true},
		{"garbage token", "not-a-jwt", true},
	}
	tests[0].token = tokenExpiringIn(t, time.Hour)
	tests[1].token = tokenExpiringIn(t, 3*time.Minute)
	tests[2].token = tokenExpiringIn(t, -time.Minute)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{})
			defer s.Clear()
			s.Set(&Session{AccessToken: tt.token})
			assert.Equal(t, tt.expired, s.IsExpired())
		})
	}
}

func TestStore_NoSessionIsExpired(t *testing.T) {
	s := New(Options{})
	assert.True(t, s.IsExpired())
}

func TestStore_ClearDropsSession(t *testing.T) {
	s := New(Options{})
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour)})

	s.Clear()
	assert.Nil(t, s.Current())
	assert.True(t, s.IsExpired())

	// Clear again must not panic on the stopped health loop.
	s.Clear()
}

type stubRevalidator struct {
	ok    bool
	err   error
	calls int
}

func (r *stubRevalidator) CheckSession(context.Context) (bool, error) {
	r.calls++
	return r.ok, r.err
}

func TestStore_RefreshClearsOnRejection(t *testing.T) {
	reval := &stubRevalidator{ok: false}
	s := New(Options{Revalidator: reval})
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour)})

	require.NoError(t, s.Refresh(context.Background()))
	assert.Nil(t, s.Current())
}

func TestStore_RefreshKeepsSessionOnTransportError(t *testing.T) {
	reval := &stubRevalidator{err: context.DeadlineExceeded}
	s := New(Options{Revalidator: reval})
	defer s.Clear()
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour)})

	assert.Error(t, s.Refresh(context.Background()))
	assert.NotNil(t, s.Current())
}

func TestStore_HealthLoopClearsExpiredSession(t *testing.T) {
	s := New(Options{CheckInterval: 10 * time.Millisecond})
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Minute)})

	assert.Eventually(t, func() bool {
		return s.Current() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestStore_InactivityClearsSession(t *testing.T) {
	s := New(Options{
		CheckInterval:   10 * time.Millisecond,
		InactivityLimit: 20 * time.Millisecond,
	})
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour)})

	assert.Eventually(t, func() bool {
		return s.Current() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestStore_ActivityDefersInactivityClear(t *testing.T) {
	s := New(Options{
		CheckInterval:   10 * time.Millisecond,
		InactivityLimit: 150 * time.Millisecond,
	})
	defer s.Clear()
	s.Set(&Session{AccessToken: tokenExpiringIn(t, time.Hour)})

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		s.UpdateActivity()
	}
	assert.NotNil(t, s.Current())
}
