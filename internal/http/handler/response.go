package handler

import (
	"github.com/labstack/echo/v4"

	"forum-service/internal/auth"
	apperrors "forum-service/pkg/errors"
)

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"
)

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyError: message})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{jsonKeyMessage: message})
}

// requireSession returns the resolved session or an unauthorized error
// for anonymous requests.
func requireSession(c echo.Context) (*auth.Session, error) {
	session := auth.SessionFromContext(c)
	if session == nil {
		return nil, apperrors.Unauthorized("sign in required")
	}
	return session, nil
}

// requirePrivilege returns the session only for moderators and admins.
func requirePrivilege(c echo.Context) (*auth.Session, error) {
	session, err := requireSession(c)
	if err != nil {
		return nil, err
	}
	if !session.IsPrivileged() {
		return nil, apperrors.Forbidden("moderator access required")
	}
	return session, nil
}

// requireAdmin returns the session only for admins.
func requireAdmin(c echo.Context) (*auth.Session, error) {
	session, err := requireSession(c)
	if err != nil {
		return nil, err
	}
	if session.User.PrivilegeRole != auth.PrivilegeAdmin {
		return nil, apperrors.Forbidden("admin access required")
	}
	return session, nil
}
