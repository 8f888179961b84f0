package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/api"
	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/config"
	"github.com/AbogiC/kostum-resonanz/internal/database"
	"github.com/AbogiC/kostum-resonanz/internal/logger"
	"github.com/AbogiC/kostum-resonanz/internal/monitoring"
	"github.com/AbogiC/kostum-resonanz/internal/services"
	"github.com/AbogiC/kostum-resonanz/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	// Set up services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	eventService := services.NewEventService(db)
	accountService := services.NewAccountService(db, tokens, eventService)
	catalogService := services.NewCatalogService(db, eventService)
	bookingService := services.NewBookingService(db, catalogService, eventService, hub)

	if cfg.AdminEmail != "" {
		if err := accountService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			log.Fatal().Err(err).Str("email", cfg.AdminEmail).Msg("Failed to bootstrap admin account")
		}
	}

	// Set up and run the pending booking digest
	var digest *monitoring.Digest
	if cfg.DigestEnabled() {
		digest, err = monitoring.NewDigest(cfg.DigestSchedule, bookingService, eventService)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule booking digest")
		}
		digest.Start()
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:           db,
		Hub:          hub,
		Accounts:     accountService,
		Catalog:      catalogService,
		Bookings:     bookingService,
		Events:       eventService,
		CORSOrigins:  cfg.CORSOrigins,
		TokenTTL:     cfg.TokenTTL,
		SecureCookie: cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if digest != nil {
		digest.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stopHub()

	log.Info().Msg("Server exiting")
}
