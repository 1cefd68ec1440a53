package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	// AI routes. Auth is optional: a valid token only adds the user's profile.
	ai := e.Group("/ai")
	ai.Use(s.OptionalJwtMiddleware)
	ai.Use(middleware.BodyLimit("12M"))

	// Generation tasks
	ai.POST("/tasks/:kind", s.taskHandler, s.RateLimitMiddleware)
	ai.POST("/prescription", s.prescriptionHandler, s.RateLimitMiddleware)
	ai.POST("/appointment", s.appointmentHandler, s.RateLimitMiddleware)

	// Chat sessions
	ai.POST("/chat/:session_id", s.chatHandler, s.RateLimitMiddleware)
	ai.GET("/chat/:session_id", s.chatHistoryHandler)
	ai.GET("/chat/:session_id/ws", s.chatSocketHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	// 1. Database
	db := map[string]string{"status": "not configured"}
	if s.db != nil {
		db = s.db.Health()
	}

	// 2. Host
	v, _ := mem.VirtualMemory()
	cpuPercent, _ := cpu.Percent(0, false)

	host := map[string]interface{}{}
	if v != nil {
		host["ram_usage"] = fmt.Sprintf("%.1f%%", v.UsedPercent)
	}
	if len(cpuPercent) > 0 {
		host["cpu_load"] = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	status := http.StatusOK
	if s.db != nil && db["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, map[string]interface{}{
		"status":   "online",
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"database": db,
		"host":     host,
	})
}

// LoggerMiddleware attaches a request-scoped logger carrying the request id to
// both the echo context and the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
