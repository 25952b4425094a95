package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKeyAuth guards the merchant-facing API with a shared key in X-Api-Key.
// With an empty key the guard is disabled (local development).
// later we can expand this to jwt auth or session auth
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}
			supplied := c.Request().Header.Get("X-Api-Key")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}
