package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akosolapov/wearsync/internal/config"
	"github.com/akosolapov/wearsync/internal/handler"
	"github.com/akosolapov/wearsync/internal/provider"
	"github.com/akosolapov/wearsync/internal/repository"
	"github.com/akosolapov/wearsync/internal/service"
	"github.com/akosolapov/wearsync/internal/utils"
	"github.com/akosolapov/wearsync/pkg/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra       Infrastructure
	config      *config.Config
	router      *gin.Engine
	server      *http.Server
	registry    *service.SessionRegistry
	coordinator *service.MFACoordinator
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	cipher, err := utils.NewBundleCipher([]byte(cfg.Security.BundleKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle cipher: %w", err)
	}

	repos := repository.NewRepositories(infra.Postgres(), cipher)

	connector := provider.NewHTTPConnector(
		cfg.Provider.BaseURL,
		cfg.Provider.RequestTimeout.Duration,
		cfg.Provider.RequestsPerSecond,
	)

	registry := service.NewSessionRegistry(
		cfg.Session.IdleTTL.Duration,
		cfg.Session.SweepInterval.Duration,
		infra.Logger(),
	)
	coordinator := service.NewMFACoordinator(
		connector,
		cfg.MFA.ChallengeTTL.Duration,
		cfg.MFA.SweepInterval.Duration,
		infra.Logger(),
	)

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authService := service.NewAuthService(connector, registry, coordinator, repos.Credentials, infra.Logger())
	healthService := service.NewHealthService(registry, infra.Logger())

	authHandler := handler.NewAuthHandler(authService)
	healthDataHandler := handler.NewHealthDataHandler(healthService)

	router := gin.Default()
	router.Use(otelgin.Middleware("wearsync"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, healthDataHandler, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:       infra,
		config:      cfg,
		router:      router,
		server:      srv,
		registry:    registry,
		coordinator: coordinator,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	healthDataHandler *handler.HealthDataHandler,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.Login,
			)
			auth.POST("/mfa",
				handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey),
				authHandler.SubmitMFACode,
			)
			auth.POST("/restore", authHandler.Restore)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		api.GET("/health-data", healthDataHandler.Fetch)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.coordinator.Start()
	a.registry.Start()

	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	a.coordinator.Stop()
	a.registry.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
