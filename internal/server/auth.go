package server

import (
	"fmt"
	"net/http"
	"strings"

	"HealthMate_V0.1/internal/utility"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// OptionalJwtMiddleware sets user_id when the request carries a valid access
// token. Requests without a token pass through anonymously; a token that does
// not verify is rejected.
func (s *Server) OptionalJwtMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var tokenString string

		// Try to get token from Authorization header first (mobile)
		authHeader := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie("access-token"); err == nil {
			// Browsers cannot set headers on websocket upgrades
			tokenString = cookie.Value
		}

		if tokenString == "" || s.jwtSecret == "" {
			return next(c)
		}

		token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.jwtSecret), nil
		})

		if err != nil || !token.Valid {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("Token validation error")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}

		claims, ok := token.Claims.(*JwtCustomClaims)
		if !ok || claims.UserID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user ID"})
		}

		c.Set("user_id", claims.UserID)
		return next(c)
	}
}

// RateLimitMiddleware caps generation requests per client IP.
func (s *Server) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiter == nil {
			return next(c)
		}
		ip := utility.GetRealIP(c)
		if err := s.limiter.CheckIPRateLimit(ip); err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Str("ip", ip).Msg("Rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		}
		return next(c)
	}
}

// currentUserID returns the authenticated user, or "" for anonymous requests.
func currentUserID(c echo.Context) string {
	id, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return ""
	}
	return id
}
