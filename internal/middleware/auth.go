package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bd31600/planning/internal/identity"
)

const EmailContextKey = "email"

// Auth extracts the bearer credential, verifies it through the configured
// identity provider and stores the verified email on the request context.
func Auth(verifier identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false, "error": "missing credential",
				})
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false, "error": "malformed credential",
				})
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			email, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false, "error": "invalid or expired credential",
				})
			}

			c.Set(EmailContextKey, email)

			return next(c)
		}
	}
}
