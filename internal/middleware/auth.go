package middleware

import (
	"net/http"
	"strings"

	"coffeeshop-service/pkg/jwtutil"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Authenticate validates the JWT token from the Authorization header and
// attaches the caller's identity to the request context. A missing
// credential is rejected with 401; a credential that fails verification is
// rejected with 403.
func Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
		}

		// Check if it's a Bearer token. Only the scheme/token split is
		// enforced; anything after the scheme is the token.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			log.Warn("Invalid Authorization header format")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No access"})
		}

		// Extract and validate the token
		tokenString := parts[1]
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid token"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		log.Debug("Request authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.String("role", claims.Role))

		return next(c)
	}
}

// RequireRoles returns a middleware that allows the request through only if
// the authenticated role is in the allow-list. It must run after
// Authenticate.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			role, ok := c.Get("role").(string)
			if !ok {
				log.Warn("Missing identity in context")
				prometheus.RecordAuthError("no_permission")
				return c.JSON(http.StatusForbidden, echo.Map{"message": "No permission"})
			}

			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}

			log.Warn("Role not permitted for this route", zap.String("role", role))
			prometheus.RecordAuthError("no_permission")
			return c.JSON(http.StatusForbidden, echo.Map{"message": "No permission"})
		}
	}
}
