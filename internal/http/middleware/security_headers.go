package middleware

import (
	"github.com/labstack/echo/v4"

	"forum-service/internal/config"
)

// SecurityHeaders adds hardening headers to every response. The CSP
// allows the payment gateway's script and frame origin plus the
// upstream auth origin for browser-side token refresh; everything else
// is same-origin.
func SecurityHeaders(sec config.SecurityConfig) echo.MiddlewareFunc {
	csp := "default-src 'self'; " +
		"script-src 'self' " + sec.PaymentScriptOrigin + "; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https:; " +
		"font-src 'self'; " +
		"connect-src 'self' " + sec.UpstreamConnectOrigin + "; " +
		"frame-src " + sec.PaymentScriptOrigin + "; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")

			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}
