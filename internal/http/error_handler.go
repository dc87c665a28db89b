package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"forum-service/internal/http/middleware"
	apperrors "forum-service/pkg/errors"
)

// NewHTTPErrorHandler returns the handler for all errors escaping
// handlers and middleware. It maps sentinel errors to status codes and
// tags every failure with an incident id so a client report can be
// matched to the server log. In production, 5xx detail stays on the
// server; the client sees only the generic message and the id.
func NewHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classify(err)

		incidentID := middleware.GetRequestID(c)
		if incidentID == "" {
			incidentID = uuid.New().String()
		}

		if code >= 500 {
			c.Logger().Errorf("request failed: incident_id=%s status=%d err=%v", incidentID, code, err)
			if production {
				message = "Internal server error"
			}
		} else {
			c.Logger().Warnf("request rejected: incident_id=%s status=%d err=%v", incidentID, code, err)
		}

		if err := c.JSON(code, map[string]interface{}{
			"error":       message,
			"incident_id": incidentID,
		}); err != nil {
			c.Logger().Error(err)
		}
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprintf("%v", httpErr.Message)
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
		message = "Resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = http.StatusUnauthorized
		message = "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		code = http.StatusForbidden
		message = "Forbidden"
	case errors.Is(err, apperrors.ErrBadRequest):
		code = http.StatusBadRequest
		message = "Bad request"
	case errors.Is(err, apperrors.ErrValidation):
		code = http.StatusBadRequest
		message = "Validation error"
	case errors.Is(err, apperrors.ErrConflict):
		code = http.StatusConflict
		message = "Resource already exists"
	case errors.Is(err, apperrors.ErrExpired):
		code = http.StatusGone
		message = "Resource expired"
	case errors.Is(err, apperrors.ErrRateLimited):
		code = http.StatusTooManyRequests
		message = "Too many requests"
	case errors.Is(err, apperrors.ErrUpstream):
		code = http.StatusBadGateway
		message = "Upstream service unavailable"
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code < 500 {
		message = appErr.Message
	}

	return code, message
}
