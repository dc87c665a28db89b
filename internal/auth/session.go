package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// Cookie names shared with the browser client. The credential pair
	// is issued by the upstream backend; the CSRF cookie is ours.
	CookieAccessToken  = "sb-access-token"
	CookieRefreshToken = "sb-refresh-token"
	CookieCSRFToken    = "csrf-token"

	// ContextKeySession is where the resolver attaches the session on
	// the request context. A nil value means anonymous.
	ContextKeySession = "session"

	csrfCookieMaxAge = 24 * 60 * 60 // 24 hours, in seconds
)

// Roles carried on the enriched session user.
const (
	RoleFree    = "free"
	RolePremium = "premium"

	PrivilegeUser      = "user"
	PrivilegeModerator = "moderator"
	PrivilegeAdmin     = "admin"
)

// User is the enriched subject identity attached to a session.
type User struct {
	ID                 string              `json:"id"`
	Email              string              `json:"email"`
	Username           string              `json:"username,omitempty"`
	Role               string              `json:"role"`
	PrivilegeRole      string              `json:"privilege_role"`
	CustomRoles        map[string][]string `json:"custom_roles,omitempty"`
	SubscriptionID     string              `json:"subscription_id,omitempty"`
	SubscriptionStatus string              `json:"subscription_status,omitempty"`
}

// Session is the server-side view of an authenticated visitor.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CSRFToken    string    `json:"csrf_token,omitempty"`
	User         User      `json:"user"`
}

// IsPrivileged reports whether the session may enter admin-restricted routes.
func (s *Session) IsPrivileged() bool {
	return s != nil && (s.User.PrivilegeRole == PrivilegeAdmin || s.User.PrivilegeRole == PrivilegeModerator)
}

// SessionFromContext returns the resolved session, or nil for anonymous
// requests. Handlers must treat nil as "not signed in", never as an error.
func SessionFromContext(c echo.Context) *Session {
	if s, ok := c.Get(ContextKeySession).(*Session); ok {
		return s
	}
	return nil
}

// SetCSRFCookie writes the anti-forgery cookie with the one canonical
// policy: readable by script (double-submit requires the client to echo
// it in a header) but strictly same-site.
func SetCSRFCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     CookieCSRFToken,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookies expires the credential pair and the CSRF cookie
// together; a session is never left partially torn down.
func ClearSessionCookies(c echo.Context) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieCSRFToken} {
		c.SetCookie(&http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}
