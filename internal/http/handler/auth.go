package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"forum-service/internal/audit"
	"forum-service/internal/auth"
)

// AuthHandler serves the session endpoints the browser client drives:
// CSRF reissue and the session mirror check.
type AuthHandler struct {
	codec         *auth.CSRFCodec
	auditLogger   *audit.Logger
	secureCookies bool
}

func NewAuthHandler(codec *auth.CSRFCodec, auditLogger *audit.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		codec:         codec,
		auditLogger:   auditLogger,
		secureCookies: secureCookies,
	}
}

// RefreshSession reissues the CSRF token for an authenticated session.
// The endpoint is exempt from the CSRF gate: it is how a client with a
// lost or expired token recovers.
func (h *AuthHandler) RefreshSession(c echo.Context) error {
	session, err := requireSession(c)
	if err != nil {
		return err
	}

	token, err := h.codec.Issue()
	if err != nil {
		c.Logger().Errorf("failed to issue CSRF token: %v", err)
		return respondError(c, http.StatusInternalServerError, "failed to refresh session")
	}

	session.CSRFToken = token
	auth.SetCSRFCookie(c, token, h.secureCookies)

	h.auditLogger.Record(c, audit.ResourceSession, session.User.ID, audit.ActionRefresh, audit.StatusSuccess, nil)

	return c.JSON(http.StatusOK, map[string]string{"csrf_token": token})
}

// CheckSession reports the session state for the client-side mirror.
func (h *AuthHandler) CheckSession(c echo.Context) error {
	session := auth.SessionFromContext(c)
	if session == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"authenticated": false,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          session.User,
	})
}
