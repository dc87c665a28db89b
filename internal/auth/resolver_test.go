package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	calls   atomic.Int32
	session *UpstreamSession
	err     error
	delay   time.Duration
}

func (f *fakeUpstream) ExchangeSession(ctx context.Context, accessToken, refreshToken string) (*UpstreamSession, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.session, f.err
}

type fakeRoles struct {
	role      string
	privilege string
	err       error
}

func (f *fakeRoles) Ensure(ctx context.Context, id, email string) error {
	return nil
}

func (f *fakeRoles) GetRoles(ctx context.Context, userID string) (string, string, error) {
	return f.role, f.privilege, f.err
}

func validUpstreamSession() *UpstreamSession {
	s := &UpstreamSession{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	s.User.ID = "user-1"
	s.User.Email = "user@example.com"
	return s
}

func newResolverContext(t *testing.T, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func credentialCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: CookieAccessToken, Value: "access-token"},
		{Name: CookieRefreshToken, Value: "refresh-token"},
	}
}

func TestResolver_NoCredentials(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), nil, ResolverOptions{})

	c, _ := newResolverContext(t)
	session := r.Resolve(c)

	assert.Nil(t, session)
	assert.Zero(t, upstream.calls.Load(), "no exchange may be attempted without credentials")
}

func TestResolver_PartialCredentials(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), nil, ResolverOptions{})

	c, _ := newResolverContext(t, &http.Cookie{Name: CookieAccessToken, Value: "access-token"})
	assert.Nil(t, r.Resolve(c))
	assert.Zero(t, upstream.calls.Load())
}

func TestResolver_SuccessfulResolution(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	roles := &fakeRoles{role: "premium", privilege: "moderator"}
	r := NewResolver(upstream, roles, NewCSRFCodec("secret"), nil, ResolverOptions{})

	c, rec := newResolverContext(t, credentialCookies()...)
	session := r.Resolve(c)

	require.NotNil(t, session)
	assert.Equal(t, "user-1", session.User.ID)
	assert.Equal(t, "premium", session.User.Role)
	assert.Equal(t, "moderator", session.User.PrivilegeRole)
	assert.NotEmpty(t, session.CSRFToken)

	// The CSRF cookie was written with the canonical policy.
	cookies := rec.Result().Cookies()
	var csrf *http.Cookie
	for _, cookie := range cookies {
		if cookie.Name == CookieCSRFToken {
			csrf = cookie
		}
	}
	require.NotNil(t, csrf)
	assert.False(t, csrf.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, csrf.SameSite)
	assert.Equal(t, session.CSRFToken, csrf.Value)
}

func TestResolver_EnrichmentFailureDefaults(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	roles := &fakeRoles{err: context.DeadlineExceeded}
	r := NewResolver(upstream, roles, NewCSRFCodec("secret"), nil, ResolverOptions{})

	c, _ := newResolverContext(t, credentialCookies()...)
	session := r.Resolve(c)

	require.NotNil(t, session)
	assert.Equal(t, RoleFree, session.User.Role)
	assert.Equal(t, PrivilegeUser, session.User.PrivilegeRole)
}

func TestResolver_ExchangeTimeoutInvalidates(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession(), delay: time.Second}
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), nil, ResolverOptions{
		ExchangeTimeout: 20 * time.Millisecond,
	})

	c, rec := newResolverContext(t, credentialCookies()...)
	session := r.Resolve(c)

	assert.Nil(t, session)
	assertAllCookiesCleared(t, rec)
}

func TestResolver_ExchangeErrorInvalidates(t *testing.T) {
	upstream := &fakeUpstream{err: context.DeadlineExceeded}
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), nil, ResolverOptions{})

	c, rec := newResolverContext(t, credentialCookies()...)
	session := r.Resolve(c)

	assert.Nil(t, session)
	assertAllCookiesCleared(t, rec)
}

func TestResolver_ExistingCSRFTokenKept(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), nil, ResolverOptions{})

	cookies := append(credentialCookies(), &http.Cookie{Name: CookieCSRFToken, Value: "existing-token"})
	c, rec := newResolverContext(t, cookies...)
	session := r.Resolve(c)

	require.NotNil(t, session)
	assert.Equal(t, "existing-token", session.CSRFToken)
	// No replacement cookie was issued.
	for _, cookie := range rec.Result().Cookies() {
		assert.NotEqual(t, CookieCSRFToken, cookie.Name)
	}
}

func TestResolver_CacheHitSkipsUpstream(t *testing.T) {
	upstream := &fakeUpstream{session: validUpstreamSession()}
	cache, _ := newTestCache(t)
	r := NewResolver(upstream, &fakeRoles{role: "premium"}, NewCSRFCodec("secret"), cache, ResolverOptions{})

	c, _ := newResolverContext(t, credentialCookies()...)
	first := r.Resolve(c)
	require.NotNil(t, first)
	require.EqualValues(t, 1, upstream.calls.Load())

	c2, _ := newResolverContext(t, credentialCookies()...)
	second := r.Resolve(c2)
	require.NotNil(t, second)
	assert.EqualValues(t, 1, upstream.calls.Load(), "cached session must not hit upstream")
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestResolver_RotatedTokenStillCached(t *testing.T) {
	rotated := validUpstreamSession()
	rotated.AccessToken = "rotated-access-token"
	rotated.RefreshToken = "rotated-refresh-token"
	upstream := &fakeUpstream{session: rotated}
	cache, _ := newTestCache(t)
	r := NewResolver(upstream, &fakeRoles{}, NewCSRFCodec("secret"), cache, ResolverOptions{})

	// The cookie pair is not rewritten after a refresh grant, so the
	// second request presents the same pre-rotation access token.
	c, _ := newResolverContext(t, credentialCookies()...)
	require.NotNil(t, r.Resolve(c))
	require.EqualValues(t, 1, upstream.calls.Load())

	c2, _ := newResolverContext(t, credentialCookies()...)
	second := r.Resolve(c2)
	require.NotNil(t, second)
	assert.EqualValues(t, 1, upstream.calls.Load(), "rotated session must resolve from cache")
	assert.Equal(t, "rotated-access-token", second.AccessToken)
}

func assertAllCookiesCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	cleared := map[string]bool{}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			cleared[cookie.Name] = true
		}
	}
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieCSRFToken} {
		assert.True(t, cleared[name], "cookie %s should be cleared", name)
	}
}
