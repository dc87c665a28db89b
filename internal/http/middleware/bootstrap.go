package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// schemaEnsurer is satisfied by bootstrap.Bootstrapper.
type schemaEnsurer interface {
	Ensure(ctx context.Context) error
}

// BootstrapGate holds API requests until the database schema has been
// applied. The first request triggers the attempt; once it fails
// terminally every API request is refused with 503 without touching
// the database again.
func BootstrapGate(ensurer schemaEnsurer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Path(), apiPrefix) {
				return next(c)
			}

			if err := ensurer.Ensure(c.Request().Context()); err != nil {
				if c.Request().Context().Err() != nil {
					return err
				}
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error": "database initialization failed",
				})
			}
			return next(c)
		}
	}
}
