package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dibs-service/internal/adapters/db"
	"dibs-service/internal/adapters/monitor"
	"dibs-service/internal/adapters/notifier"
	"dibs-service/internal/adapters/redis"
	"dibs-service/internal/adapters/ws"
	"dibs-service/internal/app"
	"dibs-service/internal/config"
	"dibs-service/internal/domain/unit"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Dibs Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)
	itemRepo := repoFactory.GetItemRepository()
	claimRepo := repoFactory.GetClaimRepository()
	profileRepo := repoFactory.GetProfileRepository()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.Ping(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis change notifier
	changeNotifier := notifier.NewNotifier(notifier.RedisNotifierParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis change notifier initialized")

	// Create business services
	resolutionService := app.NewResolutionService(app.ResolutionServiceParams{
		ItemRepo:     itemRepo,
		ClaimRepo:    claimRepo,
		ProfileRepo:  profileRepo,
		Notifier:     changeNotifier,
		Policy:       unit.EligibilityPolicy(cfg.Resolution.EligibilityPolicy),
		TieExtension: cfg.Resolution.TieExtension,
		Logger:       log.Logger,
	})
	itemService := app.NewItemService(app.ItemServiceParams{
		ItemRepo:    itemRepo,
		ClaimRepo:   claimRepo,
		ProfileRepo: profileRepo,
		Notifier:    changeNotifier,
		ClaimWindow: cfg.Resolution.ClaimWindow,
		Logger:      log.Logger,
	})
	claimService := app.NewClaimService(app.ClaimServiceParams{
		ClaimRepo:   claimRepo,
		ItemRepo:    itemRepo,
		ProfileRepo: profileRepo,
		Notifier:    changeNotifier,
		Resolver:    resolutionService,
		Logger:      log.Logger,
	})
	profileService := app.NewProfileService(app.ProfileServiceParams{
		ProfileRepo:    profileRepo,
		Notifier:       changeNotifier,
		StartingPoints: cfg.Resolution.StartingPoints,
		Logger:         log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create expiration monitor
	expirationMonitor := monitor.NewExpirationMonitor(monitor.ExpirationMonitorParams{
		ItemRepo: itemRepo,
		Resolver: resolutionService,
		Interval: cfg.Resolution.MonitorInterval,
		Logger:   log.Logger,
	})

	// Start expiration monitor
	expirationMonitor.Start()
	log.Info().Msg("Expiration monitor started")

	wsServer := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		ItemService:    itemService,
		ClaimService:   claimService,
		ProfileService: profileService,
		Notifier:       changeNotifier,
		Logger:         log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	// Start WebSocket server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting WebSocket server")
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop expiration monitor
	expirationMonitor.Stop()
	log.Info().Msg("Expiration monitor stopped")

	// Stop WebSocket server
	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	// Close change notifier subscriptions
	if err := changeNotifier.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing change notifier")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
