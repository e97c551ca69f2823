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

	"github.com/isdelr/task-manager-be/internal/api"
	"github.com/isdelr/task-manager-be/internal/auth"
	"github.com/isdelr/task-manager-be/internal/config"
	"github.com/isdelr/task-manager-be/internal/database"
	"github.com/isdelr/task-manager-be/internal/housekeeping"
	"github.com/isdelr/task-manager-be/internal/logger"
	"github.com/isdelr/task-manager-be/internal/metrics"
	"github.com/isdelr/task-manager-be/internal/notify"
	"github.com/isdelr/task-manager-be/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	signer := auth.NewSigner([]byte(cfg.JWTSecret), cfg.TokenTTL)
	userService := services.NewUserService(db, cfg.BcryptCost)
	tokenService := services.NewTokenService(db, signer)
	taskService := services.NewTaskService(db)
	eventService := services.NewEventService(db)
	notifier := notify.New(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
	accountService := services.NewAccountService(db, userService, tokenService, taskService, eventService, notifier,
		services.AccountOptions{NotifyTimeout: cfg.NotifyTimeout, AvatarSize: cfg.AvatarSize})

	// Set up and run the background event pruner
	var pruner *housekeeping.Scheduler
	if cfg.EventRetention > 0 {
		pruner, err = housekeeping.NewScheduler(eventService, cfg.EventPruneSchedule, cfg.EventRetention)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure event pruner")
		}
		pruner.Start()
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		DB:             db,
		Gate:           auth.NewGate(tokenService, userService),
		Accounts:       accountService,
		Users:          userService,
		Tasks:          taskService,
		Events:         eventService,
		Metrics:        metrics.New(db),
		AllowedOrigins: cfg.AllowedOrigins,
		AvatarMaxBytes: cfg.AvatarMaxBytes,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if pruner != nil {
		pruner.Stop(ctx)
	}

	// let in-flight welcome/goodbye mails finish before the process exits
	accountService.Wait()
	log.Info().Msg("Server exiting")
}
