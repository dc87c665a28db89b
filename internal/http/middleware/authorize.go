package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"forum-service/internal/auth"
)

const (
	// CSRFHeader carries the double-submit token on mutating requests.
	CSRFHeader = "x-csrf-token"
	// RefreshCSRFHeader tells the browser client its token is near
	// expiry and the cookie has been rotated.
	RefreshCSRFHeader = "X-Refresh-CSRF"

	apiPrefix   = "/api"
	adminPrefix = "/admin"

	loginPath = "/login"
	homePath  = "/"
)

// Endpoints that must accept requests from visitors who cannot hold a
// valid token yet (first sign-in) or whose token is the thing being
// repaired (refresh).
var csrfExemptPaths = map[string]struct{}{
	"/api/auth/signin":          {},
	"/api/auth/signup":          {},
	"/api/auth/reset-password":  {},
	"/api/auth/refresh-session": {},
}

type sessionResolver interface {
	Resolve(c echo.Context) *auth.Session
}

type requestLimiter interface {
	AllowIP(ip string) bool
	AllowUser(userID string) bool
	AllowEndpoint(endpoint, ip string) bool
}

// AuthorizerOptions configures an Authorizer.
type AuthorizerOptions struct {
	// SecureCookies marks rotated CSRF cookies Secure (production).
	SecureCookies bool
}

// Authorizer is the single gate every request passes through: rate
// limits first, then session resolution, then the CSRF check for
// mutating API calls, then the privilege check for admin pages.
type Authorizer struct {
	resolver sessionResolver
	limiter  requestLimiter
	codec    *auth.CSRFCodec
	opts     AuthorizerOptions
}

func NewAuthorizer(resolver sessionResolver, limiter requestLimiter, codec *auth.CSRFCodec, opts AuthorizerOptions) *Authorizer {
	return &Authorizer{
		resolver: resolver,
		limiter:  limiter,
		codec:    codec,
		opts:     opts,
	}
}

// Middleware returns the Echo middleware enforcing the gate.
func (a *Authorizer) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			path := c.Request().URL.Path

			if !a.limiter.AllowIP(ip) {
				return tooManyRequests(c)
			}

			// Resolution never fails the request; anonymous proceeds
			// with a nil session.
			session := a.resolver.Resolve(c)
			c.Set(auth.ContextKeySession, session)

			if session != nil && !a.limiter.AllowUser(session.User.ID) {
				return tooManyRequests(c)
			}

			if strings.HasPrefix(path, apiPrefix) {
				if !a.limiter.AllowEndpoint(path, ip) {
					return tooManyRequests(c)
				}
				if err := a.checkCSRF(c, session, path); err != nil {
					return err
				}
			}

			if strings.HasPrefix(path, adminPrefix) {
				if redirect := a.checkAdmin(c, session); redirect != nil {
					return redirect
				}
			}

			return next(c)
		}
	}
}

// checkCSRF enforces the double-submit token on mutating API requests.
// Safe methods and the exempt auth endpoints pass through untouched.
func (a *Authorizer) checkCSRF(c echo.Context, session *auth.Session, path string) error {
	switch c.Request().Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	if _, exempt := csrfExemptPaths[path]; exempt {
		return nil
	}

	// A session without a stored token cannot be validated against; it
	// is indistinguishable from an expired one.
	if session == nil || session.CSRFToken == "" {
		return forbidden(c, "Session expired or invalid")
	}

	presented := c.Request().Header.Get(CSRFHeader)
	if presented == "" {
		return forbidden(c, "Missing CSRF token")
	}

	result := a.codec.Validate(presented, session.CSRFToken)
	if !result.Valid {
		return forbidden(c, "Invalid CSRF token")
	}

	if result.NeedsRefresh {
		a.rotateCSRF(c, session)
	}

	return nil
}

// rotateCSRF replaces a soft-expired token and signals the client so it
// picks up the new cookie value before its next mutating call.
func (a *Authorizer) rotateCSRF(c echo.Context, session *auth.Session) {
	token, err := a.codec.Issue()
	if err != nil {
		c.Logger().Errorf("failed to rotate CSRF token: %v", err)
		return
	}

	session.CSRFToken = token
	auth.SetCSRFCookie(c, token, a.opts.SecureCookies)
	c.Response().Header().Set(RefreshCSRFHeader, "true")
}

// checkAdmin gates the admin pages. These are browser navigations, so
// failures redirect instead of returning JSON.
func (a *Authorizer) checkAdmin(c echo.Context, session *auth.Session) error {
	if session == nil {
		return c.Redirect(http.StatusSeeOther, loginPath)
	}
	if !session.IsPrivileged() {
		return c.Redirect(http.StatusSeeOther, homePath)
	}
	return nil
}

func tooManyRequests(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "1")
	return c.JSON(http.StatusTooManyRequests, map[string]string{
		"error": "Too many requests",
	})
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, map[string]string{
		"error": msg,
	})
}
