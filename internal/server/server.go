/*
Package server implements the application's network transport layer.
It exposes the generation pipeline over HTTP and websockets, and wires the
request-scoped concerns (logging, auth, rate limits) around it.
*/
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"HealthMate_V0.1/internal/appointment"
	"HealthMate_V0.1/internal/chat"
	"HealthMate_V0.1/internal/database"
	"HealthMate_V0.1/internal/pipeline"
	"HealthMate_V0.1/internal/utility"
)

// ProfileSource resolves the optional health profile of an authenticated user.
type ProfileSource interface {
	Load(ctx context.Context, userID string) (*pipeline.HealthProfile, error)
}

// DoctorDirectory finds the doctor an appointment request refers to.
type DoctorDirectory interface {
	FindDoctorByName(ctx context.Context, name string) (database.Doctor, error)
	FindDoctorBySpecialization(ctx context.Context, specialization string) (database.Doctor, error)
}

// Deps carries everything the handlers need. Only Dispatcher is required;
// a nil DB, Profiles, Doctors, Bookings or Archive disables that feature.
type Deps struct {
	DB         database.Service
	Dispatcher *pipeline.Dispatcher
	Reconciler *appointment.Reconciler
	Bookings   appointment.BookingSource
	Doctors    DoctorDirectory
	Profiles   ProfileSource
	Archive    chat.Archive
	Hub        *utility.ChatHub
	Limiter    *utility.RateLimiter
	JWTSecret  string
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service and connection pool.
	db database.Service

	dispatcher *pipeline.Dispatcher
	reconciler *appointment.Reconciler
	bookings   appointment.BookingSource
	doctors    DoctorDirectory
	profiles   ProfileSource
	archive    chat.Archive
	hub        *utility.ChatHub
	limiter    *utility.RateLimiter
	jwtSecret  string

	startedAt time.Time
}

// New builds the Server; missing optional collaborators get in-process defaults.
func New(port int, d Deps) *Server {
	s := &Server{
		port:       port,
		db:         d.DB,
		dispatcher: d.Dispatcher,
		reconciler: d.Reconciler,
		bookings:   d.Bookings,
		doctors:    d.Doctors,
		profiles:   d.Profiles,
		archive:    d.Archive,
		hub:        d.Hub,
		limiter:    d.Limiter,
		jwtSecret:  d.JWTSecret,
		startedAt:  time.Now(),
	}
	if s.reconciler == nil {
		s.reconciler = appointment.NewReconciler(time.Local)
	}
	if s.hub == nil {
		s.hub = utility.NewChatHub()
	}
	return s
}

// NewServer returns a configured *http.Server for the given dependencies.
// writeTimeout must leave room for the slowest provider call.
func NewServer(port int, writeTimeout time.Duration, d Deps) *http.Server {
	newApp := New(port, d)

	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	return &http.Server{
		Addr:         newApp.Addr(),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,      // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second, // Maximum duration for reading the entire request.
		WriteTimeout: writeTimeout,     // Maximum duration before timing out writes of the response.
	}
}

// Addr is the listen address.
func (s *Server) Addr() string { return fmt.Sprintf(":%d", s.port) }
