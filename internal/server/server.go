package server

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/client/notify"
	"github.com/stampcard/stampcard-api/internal/config"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/handlers"
	"github.com/stampcard/stampcard-api/internal/logger"
	"github.com/stampcard/stampcard-api/internal/metrics"
	"github.com/stampcard/stampcard-api/internal/middleware"
	"github.com/stampcard/stampcard-api/internal/pass"
	"github.com/stampcard/stampcard-api/internal/services"
	"go.uber.org/zap"
)

// Server wires configuration, storage, services, and routes together. The
// storage backend is selected exactly once here and injected everywhere;
// request handlers never know which variant they run on.
type Server struct {
	cfg    *config.Config
	store  db.Store
	router *gin.Engine
}

// New builds a ready-to-run server from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	identity := services.NewIdentityService(store)
	validator := services.NewStaticTokenValidator(cfg.StampToken)

	var notifier services.RewardNotifier = notify.NopNotifier{}
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.RewardFromEmail, cfg.OrganizationName)
	}

	stamps := services.NewStampService(services.StampServiceConfig{
		Store:         store,
		Identity:      identity,
		Validator:     validator,
		Notifier:      notifier,
		Threshold:     int32(cfg.StampThreshold),
		Cooldown:      cfg.Cooldown(),
		RewardMessage: cfg.RewardMessage,
	})

	issuer := pass.NewIssuer(cfg.OrganizationName, int32(cfg.StampThreshold))

	common := handlers.NewCommonServices(store, logger.Log)
	signupHandler := handlers.NewSignupHandler(common, identity)
	stampHandler := handlers.NewStampHandler(common, stamps)
	customerHandler := handlers.NewCustomerHandler(common, identity, issuer)
	healthHandler := handlers.NewHealthHandler(common)

	router := newRouter(cfg)
	registerRoutes(router, signupHandler, stampHandler, customerHandler, healthHandler)

	logger.Info("Server initialized",
		zap.String("stage", cfg.Stage),
		zap.String("storage_backend", string(cfg.StorageBackend())))

	return &Server{
		cfg:    cfg,
		store:  store,
		router: router,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.StorageBackend() {
	case config.BackendPostgres:
		store, err := db.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := db.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	}
}

func newRouter(cfg *config.Config) *gin.Engine {
	if cfg.Stage == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst).Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Correlation-ID"},
		AllowCredentials: true,
	}))

	return router
}

func registerRoutes(
	router *gin.Engine,
	signupHandler *handlers.SignupHandler,
	stampHandler *handlers.StampHandler,
	customerHandler *handlers.CustomerHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/signup", signupHandler.Signup)
		v1.POST("/stamp", stampHandler.AddStamp)
		v1.GET("/customers/:identifier", customerHandler.GetCustomer)
		v1.GET("/customers/:identifier/pass", customerHandler.GetPass)
	}
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close releases the storage backend.
func (s *Server) Close() {
	s.store.Close()
}
