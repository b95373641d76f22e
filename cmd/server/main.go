// @title           Photo Studio Backend API
// @version         1.0.0
// @description     Backend API for AI photo editing: image selection, generation jobs against a remote provider, and real-time status updates via Supabase Realtime.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"photo-studio-backend/docs"
	"photo-studio-backend/internal/config"
	"photo-studio-backend/internal/database"
	"photo-studio-backend/internal/handlers"
	"photo-studio-backend/internal/logging"
	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/supabase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("production", "info")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("invalid server configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var supabaseClient *supabase.Client
	if cfg.SupabaseURL != "" && cfg.SupabasePublishableKey != "" {
		supabaseClient, err = supabase.NewClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Supabase client")
		}
	}

	uploader, err := services.NewUploader(ctx, cfg, supabaseClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	var events services.EventPublisher
	if cfg.RealtimeEvents && supabaseClient != nil {
		events = supabase.NewRealtimeClient(supabaseClient.Supabase)
	}

	// History is optional; without DATABASE_URL the /jobs route answers 503.
	var history services.HistoryRecorder
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set; migrations skipped and job history disabled")
	} else {
		history = openHistory(cfg.DatabaseURL, logger)
	}

	engine := services.NewEngine(cfg, uploader, logger)
	generationService := services.NewGenerationService(ctx, engine, uploader, services.Options{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		SessionTTL:        cfg.SessionIdleTTL,
		History:           history,
		Events:            events,
		Logger:            logger.With().Str("component", "generation").Logger(),
	})

	router := newRouter(cfg, logger, generationService)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("storage", cfg.StorageBackend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	// ctx is cancelled, so running jobs fail fast and are recorded.
	generationService.Close()
	if closer, ok := history.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	logger.Info().Msg("server stopped")
}

// newRouter builds the gin engine with its middleware and routes.
func newRouter(cfg *config.Config, logger zerolog.Logger, generationService *services.GenerationService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        300 * time.Second,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterRoutes(api,
		handlers.NewSessionHandler(generationService),
		handlers.NewImagesHandler(generationService, cfg.LocalImageDir, logger),
		handlers.NewGenerateHandler(generationService),
		handlers.NewHistoryHandler(generationService),
	)

	return router
}

// openHistory runs the migrations and connects the history store. Failures
// only disable history.
func openHistory(dbURL string, logger zerolog.Logger) services.HistoryRecorder {
	migrator, err := database.NewMigrator(dbURL, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize migrator")
	} else {
		if err := migrator.Run(); err != nil {
			logger.Warn().Err(err).Msg("migration failed")
		} else {
			logger.Info().Msg("migrations completed successfully")
		}
		_ = migrator.Close()
	}

	dbClient, err := supabase.NewDatabaseClient(dbURL)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize database client; job history disabled")
		return nil
	}
	return dbClient
}
