package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	user "HealthMate_V0.1/internal/User"
	"HealthMate_V0.1/internal/aiservice"
	"HealthMate_V0.1/internal/appointment"
	"HealthMate_V0.1/internal/chat"
	"HealthMate_V0.1/internal/config"
	"HealthMate_V0.1/internal/database"
	"HealthMate_V0.1/internal/pipeline"
	"HealthMate_V0.1/internal/server"
	"HealthMate_V0.1/internal/utility"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	ctx := context.Background()

	// 2. Database and schema
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to database")
	}
	defer dbService.Close() // Ensure the database connection is closed on exit.

	if err := dbService.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not apply migrations")
	}
	queries := dbService.Queries()

	// 3. Model provider and pipeline
	provider, err := aiservice.New(cfg.AI)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("Could not initialize model provider")
	}

	dispatcher := pipeline.NewDispatcher(provider,
		pipeline.WithChatStore(chat.NewStore(cfg.Pipeline.ChatMaxTurns)),
		pipeline.WithLocation(cfg.Location()),
		pipeline.WithTimeout(cfg.RequestTimeout),
	)

	reconciler := appointment.NewReconciler(cfg.Location())
	reconciler.DayStart, reconciler.DayEnd = cfg.WorkingWindow()
	reconciler.MinimumGap = cfg.MinimumSlot()

	// 4. HTTP server
	apiServer := server.NewServer(cfg.Port, cfg.RequestTimeout+15*time.Second, server.Deps{
		DB:         dbService,
		Dispatcher: dispatcher,
		Reconciler: reconciler,
		Bookings:   appointment.DBSource{Q: queries},
		Doctors:    queries,
		Profiles:   user.NewProfileLoader(queries, user.DefaultCacheSize, cfg.Pipeline.ProfileCacheTTL),
		Archive:    chat.DBArchive{Q: queries},
		Hub:        utility.NewChatHub(),
		Limiter:    utility.NewRateLimiter(cfg.Pipeline.RateLimitPerMinute, time.Minute),
		JWTSecret:  cfg.JWTSecret,
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Info().
		Str("addr", apiServer.Addr).
		Str("provider", cfg.AI.Provider).
		Str("timezone", cfg.Location().String()).
		Msg("HealthMate API listening")

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
