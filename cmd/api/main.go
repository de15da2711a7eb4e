package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/handlers"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/middleware"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/api/routes"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/analytics"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/clarify"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/directory"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/flow"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/preference"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/domain/session"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/engine"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/cache"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/persistence/postgres/connection"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/persistence/postgres/migrations"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/pkg/config"
	"github.com/The-Voice-Ledger/Trust-Voice-sub000/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	// Set up Gin
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	gin.DefaultWriter = os.Stdout

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Connect to database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis
	redisConfig := cache.NewConfigFromEnv(cfg)
	redisClient, err := cache.NewRedisClient(redisConfig)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Session store over Redis
	sessionStore := session.NewRedisStore(redisClient, log.Logger)

	// Flow registry and state machine
	registry := flow.DefaultRegistry()
	machine := flow.NewMachine(registry, sessionStore, cfg.Session.TTL, log.Logger)

	// Fuzzy matcher tuned from config
	matcher := &clarify.Matcher{
		ExactThreshold:     cfg.Engine.ExactMatchThreshold,
		AmbiguousThreshold: cfg.Engine.AmbiguousMatchThreshold,
		MaxOptions:         cfg.Engine.MaxClarifyOptions,
	}

	// Donation target directory
	targetDirectory := directory.NewStatic(directory.SeedTargets())

	// Preferences and the learner, backed by the analytics event archive
	preferenceRepo := preference.NewRepository(db)
	preferenceService := preference.NewService(preferenceRepo, log.Logger)

	analyticsRepo := analytics.NewRepository(db)
	analyticsService := analytics.NewService(analyticsRepo, registry, log.Logger)
	flowArchive := analytics.NewFlowArchive(analyticsRepo)

	learner := preference.NewLearner(
		preferenceRepo,
		flowArchive,
		cfg.Engine.LearnableAmountCeiling,
		cfg.Engine.PatternScanWindow,
		log.Logger,
	)

	// Dialogue engine
	dialogueEngine := engine.New(engine.Config{
		Store:     sessionStore,
		Machine:   machine,
		Matcher:   matcher,
		Directory: targetDirectory,
		Prefs:     preferenceService,
		Learner:   learner,
		Tracker:   analyticsService,
		TTL:       cfg.Session.TTL,
		Logger:    log.Logger,
	})

	// Initialize handlers
	turnHandler := handlers.NewTurnHandler(dialogueEngine)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Register routes
	routes.SetupHealthRoutes(router, redisClient)
	log.Info("Registered health check routes at /health and /health/ready")

	turnRoutes := routes.NewTurnRoutes(turnHandler)
	turnRoutes.RegisterRoutes(router)
	log.Info("Registered dialogue routes at /api/dialogue")

	preferenceRoutes := routes.NewPreferenceRoutes(preferenceHandler)
	preferenceRoutes.RegisterRoutes(router)
	log.Info("Registered preference routes at /api/users/:user_id/preferences")

	analyticsRoutes := routes.NewAnalyticsRoutes(analyticsHandler)
	analyticsRoutes.RegisterRoutes(router)
	log.Info("Registered analytics routes at /api/analytics")

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
