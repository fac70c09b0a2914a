package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/ftpong/arena-server/arena"
	"github.com/ftpong/arena-server/config"
	"github.com/ftpong/arena-server/db"
	"github.com/ftpong/arena-server/handlers"
	"github.com/ftpong/arena-server/repositories"
	api "github.com/ftpong/arena-server/routes"
	"github.com/ftpong/arena-server/services"
	"github.com/ftpong/arena-server/storage"
	"github.com/ftpong/arena-server/ws"
)

// sweepInterval is how often expired invitations, used join tokens and arena
// grants are dropped.
const sweepInterval = time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("object storage not configured, banner uploads disabled")
	}

	hub := ws.NewHub()

	receptionRepo := repositories.NewPostgresReceptionRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresTournamentParticipantRepository(dbConn)
	tournamentMatchRepo := repositories.NewPostgresTournamentMatchRepository(dbConn)
	logger.Info("repositories initialized")

	jwtSecret := []byte(cfg.JWTSecretKey)
	notifier := services.NewHubNotifier(hub)
	users := services.NewHTTPUserGateway(cfg.UserServiceURL)
	arenaAllow := services.NewAllowList()

	receptionService := services.NewReceptionService(
		receptionRepo, hub, notifier, users, arenaAllow, jwtSecret, logger)
	matchService := services.NewMatchService(matchRepo, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, participantRepo, tournamentMatchRepo, notifier, uploader, logger)
	logger.Info("services initialized")

	arenaConfig := arena.Config{}
	if cfg.ArenaTickRate > 0 {
		arenaConfig.TickInterval = time.Second / time.Duration(cfg.ArenaTickRate)
	}
	arenaManager := arena.NewManager()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			receptionService.Sweep()
			arenaAllow.Sweep()
		}
	}()

	receptionHandler := handlers.NewReceptionHandler(receptionService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	matchHandler := handlers.NewMatchHandler(matchService)
	receptionWS := handlers.NewReceptionWSHandler(hub, receptionService, jwtSecret, logger)
	arenaWS := handlers.NewArenaWSHandler(hub, arenaManager, arenaConfig, arenaAllow,
		receptionService, matchService, tournamentService, users, jwtSecret, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, receptionHandler, tournamentHandler, matchHandler,
		receptionWS, arenaWS, jwtSecret)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}
	}

	logger.Info("server stopped")
}
