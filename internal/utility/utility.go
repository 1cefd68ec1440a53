package utility

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
)

// GetRealIP is a helper function to get the user's real IP address
// It checks proxy headers (like from ngrok) first.
func GetRealIP(c echo.Context) string {
	// 1. Check X-Forwarded-For first
	// This header can be a list: "client, proxy1, proxy2"
	if xForwardedFor := c.Request().Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if first := strings.TrimSpace(ips[0]); first != "" {
			return first
		}
	}

	// 2. Check X-Real-IP
	if xRealIP := strings.TrimSpace(c.Request().Header.Get("X-Real-IP")); xRealIP != "" {
		return xRealIP
	}

	// 3. Direct peer
	return c.RealIP()
}

func PgtypeUUIDToString(pgtypeUUID pgtype.UUID) (string, error) {
	if !pgtypeUUID.Valid {
		return "", fmt.Errorf("invalid UUID")
	}

	UUID, err := uuid.FromBytes(pgtypeUUID.Bytes[:])
	if err != nil {
		return "", fmt.Errorf("failed to parse UUID: %w", err)
	}

	return UUID.String(), nil
}

// GetUserIDFromContext safely retrieves user ID from Echo context
func GetUserIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// RateLimiter is a sliding-window counter keyed by client IP.
type RateLimiter struct {
	Window      time.Duration
	MaxAttempts int
	Now         func() time.Time

	attempts sync.Map // ip -> []time.Time
	mu       sync.Mutex
}

func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{Window: window, MaxAttempts: maxAttempts, Now: time.Now}
}

// CheckIPRateLimit records an attempt for ip, or rejects it once the window is full.
func (r *RateLimiter) CheckIPRateLimit(ip string) error {
	if r.MaxAttempts <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	val, _ := r.attempts.LoadOrStore(ip, []time.Time{})
	attempts := val.([]time.Time)

	// Remove old attempts
	var recent []time.Time
	for _, t := range attempts {
		if now.Sub(t) < r.Window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.MaxAttempts {
		r.attempts.Store(ip, recent)
		return fmt.Errorf("too many requests, please try again later")
	}

	recent = append(recent, now)
	r.attempts.Store(ip, recent)
	return nil
}
