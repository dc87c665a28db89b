package auth

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// RoleReader supplies the enrichment attributes merged onto a resolved
// session. Implemented by the profile repository.
type RoleReader interface {
	// Ensure creates the profile row on first sight of a user.
	Ensure(ctx context.Context, id, email string) error
	GetRoles(ctx context.Context, userID string) (role, privilegeRole string, err error)
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// ExchangeTimeout bounds the upstream credential exchange. A slow
	// upstream degrades the request to anonymous instead of stalling it.
	ExchangeTimeout time.Duration
	// SecureCookies marks issued cookies Secure (production).
	SecureCookies bool
}

// Resolver exchanges stored credential cookies for a validated,
// enriched session.
type Resolver struct {
	upstream UpstreamClient
	roles    RoleReader
	codec    *CSRFCodec
	cache    *SessionCache
	opts     ResolverOptions
}

func NewResolver(upstream UpstreamClient, roles RoleReader, codec *CSRFCodec, cache *SessionCache, opts ResolverOptions) *Resolver {
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 2 * time.Second
	}
	return &Resolver{
		upstream: upstream,
		roles:    roles,
		codec:    codec,
		cache:    cache,
		opts:     opts,
	}
}

type exchangeResult struct {
	session *UpstreamSession
	err     error
}

// Resolve walks the credential cookies through exchange, enrichment and
// CSRF issuance. It returns nil for anonymous visitors and for every
// failure: an unresolvable session clears all credential cookies and
// the request proceeds unauthenticated. Resolve never errors.
func (r *Resolver) Resolve(c echo.Context) *Session {
	accessToken := readCookie(c, CookieAccessToken)
	refreshToken := readCookie(c, CookieRefreshToken)

	// NoCredentials: nothing to exchange, no upstream call is made.
	if accessToken == "" || refreshToken == "" {
		return nil
	}

	ctx := c.Request().Context()

	if cached := r.cache.Get(ctx, accessToken); cached != nil {
		r.ensureCSRFToken(c, cached)
		return cached
	}

	upstreamSession, err := r.exchange(ctx, accessToken, refreshToken)
	if err != nil {
		c.Logger().Warnf("session exchange failed: %v", err)
		r.invalidate(c, accessToken)
		return nil
	}

	session := &Session{
		AccessToken:  upstreamSession.AccessToken,
		RefreshToken: upstreamSession.RefreshToken,
		IssuedAt:     time.Now(),
		ExpiresAt:    time.Unix(upstreamSession.ExpiresAt, 0),
		CSRFToken:    readCookie(c, CookieCSRFToken),
		User: User{
			ID:    upstreamSession.User.ID,
			Email: upstreamSession.User.Email,
		},
	}

	r.enrich(ctx, session)
	r.ensureCSRFToken(c, session)
	// Keyed by the cookie's token: a refresh grant rotates the pair
	// but the cookie keeps presenting the old access token.
	r.cache.Put(ctx, accessToken, session)

	return session
}

// exchange races the upstream call against the configured timeout. The
// losing goroutine owns no shared state: it can only deliver into a
// buffered channel nobody reads, so a late completion cannot touch a
// request that already proceeded as anonymous.
func (r *Resolver) exchange(ctx context.Context, accessToken, refreshToken string) (*UpstreamSession, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, r.opts.ExchangeTimeout)
	defer cancel()

	results := make(chan exchangeResult, 1)
	go func() {
		session, err := r.upstream.ExchangeSession(exchangeCtx, accessToken, refreshToken)
		results <- exchangeResult{session: session, err: err}
	}()

	select {
	case res := <-results:
		return res.session, res.err
	case <-exchangeCtx.Done():
		return nil, exchangeCtx.Err()
	}
}

// enrich merges profile role attributes onto the session user. A failed
// lookup is not fatal: the user keeps the defaults.
func (r *Resolver) enrich(ctx context.Context, session *Session) {
	session.User.Role = RoleFree
	session.User.PrivilegeRole = PrivilegeUser

	if err := r.roles.Ensure(ctx, session.User.ID, session.User.Email); err != nil {
		return
	}
	role, privilege, err := r.roles.GetRoles(ctx, session.User.ID)
	if err != nil {
		return
	}
	if role != "" {
		session.User.Role = role
	}
	if privilege != "" {
		session.User.PrivilegeRole = privilege
	}
}

// ensureCSRFToken issues an anti-forgery token for sessions that lack
// one and persists it as a cookie.
func (r *Resolver) ensureCSRFToken(c echo.Context, session *Session) {
	if session.CSRFToken != "" {
		return
	}

	token, err := r.codec.Issue()
	if err != nil {
		c.Logger().Errorf("failed to issue CSRF token: %v", err)
		return
	}

	session.CSRFToken = token
	SetCSRFCookie(c, token, r.opts.SecureCookies)
}

// invalidate tears the session down: cached copy dropped, all three
// credential cookies cleared.
func (r *Resolver) invalidate(c echo.Context, accessToken string) {
	r.cache.Invalidate(c.Request().Context(), accessToken)
	ClearSessionCookies(c)
}

func readCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
