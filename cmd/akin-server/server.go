package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/akin/akin/internal/config"
	"github.com/akin/akin/internal/domain/assistant"
	"github.com/akin/akin/internal/domain/exam"
	"github.com/akin/akin/internal/domain/identity"
	"github.com/akin/akin/internal/domain/notification"
	"github.com/akin/akin/internal/domain/patient"
	"github.com/akin/akin/internal/domain/scheduling"
	"github.com/akin/akin/internal/domain/team"
	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/backend"
	"github.com/akin/akin/internal/platform/db"
	"github.com/akin/akin/internal/platform/middleware"
	"github.com/akin/akin/internal/platform/session"
	"github.com/akin/akin/internal/platform/websocket"
)

const (
	version       = "0.1.0"
	sweepInterval = 15 * time.Minute
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e, err := newServer(cfg, logger, storage, reg)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Str("sessions", cfg.SessionBackend).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// sessionStorage is the configured session backend plus what the server
// needs around it.
type sessionStorage struct {
	session.Storage
	// health is mounted at /health/<name> when set.
	name   string
	health db.Pinger
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sessionStorage, error) {
	switch cfg.SessionBackend {
	case config.SessionFile:
		fs, err := session.NewFileStorage(cfg.SessionDir)
		if err != nil {
			return nil, err
		}
		return &sessionStorage{Storage: fs, close: func() {}}, nil

	case config.SessionPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		pg := session.NewPGStorage(pool, cfg.SessionTTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepSessions(sweepCtx, pg, logger)
		return &sessionStorage{
			Storage: pg,
			name:    "db",
			health:  pool,
			close: func() {
				cancel()
				pool.Close()
			},
		}, nil

	case config.SessionRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to redis")
		rs := session.NewRedisStorage(client, cfg.SessionTTL)
		return &sessionStorage{
			Storage: rs,
			name:    "redis",
			health:  rs,
			close:   func() { _ = client.Close() },
		}, nil
	}
	return &sessionStorage{Storage: session.NewMemoryStorage(), close: func() {}}, nil
}

func sweepSessions(ctx context.Context, pg *session.PGStorage, logger zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.Sweep(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("sweep expired sessions")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("removed", n).Msg("swept expired sessions")
			}
		}
	}
}

// newServer assembles the gateway: middleware, guard, API routes, the
// websocket endpoint, health and metrics, and the SPA.
func newServer(cfg *config.Config, logger zerolog.Logger, storage *sessionStorage, reg *prometheus.Registry) (*echo.Echo, error) {
	client, err := backend.New(backend.Config{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		RefreshSkew: 30 * time.Second,
		Logger:      logger,
		Metrics:     backend.NewMetrics(reg),
	})
	if err != nil {
		return nil, err
	}

	registry := auth.MustDefaultRegistry()
	cookies := session.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.SessionTTL}
	sessions := session.NewManager(storage, logger)
	resolver := &session.Resolver{Manager: sessions, Cookies: cookies, Logger: logger}
	hub := websocket.NewHub(logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger, func(c echo.Context) {
		session.ClearCookies(c, cookies)
	})

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.Metrics(middleware.NewHTTPMetrics(reg)))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(auth.GuardMiddleware(auth.GuardConfig{
		Guard:       auth.NewGuard(registry),
		Credentials: resolver.Credentials,
		Logger:      logger,
	}))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if storage.health != nil {
		e.GET("/health/"+storage.name, db.HealthHandler(storage.name, storage.health, logger))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// API
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	requireSession := auth.RequireSession(resolver)

	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	protected := apiV1.Group("", requireSession)

	identityHandler := identity.NewHandler(identity.NewService(client, sessions, registry, logger), cookies)
	identityHandler.RegisterPublicRoutes(apiV1)
	identityHandler.RegisterRoutes(protected)

	schedulingRepo := scheduling.NewHTTPRepository(client)
	scheduling.NewHandler(scheduling.NewService(schedulingRepo)).RegisterRoutes(protected)
	exam.NewHandler(exam.NewService(exam.NewHTTPRepository(client))).RegisterRoutes(protected)
	patient.NewHandler(patient.NewService(patient.NewHTTPRepository(client), schedulingRepo)).RegisterRoutes(protected)
	team.NewHandler(team.NewService(team.NewHTTPRepository(client))).RegisterRoutes(protected)
	notification.NewHandler(notification.NewService(notification.NewHTTPRepository(client), hub, logger)).RegisterRoutes(protected)

	var agent assistant.Agent
	if cfg.AssistantEnabled() {
		agentClient, err := backend.New(backend.Config{
			BaseURL: cfg.AssistantURL,
			Timeout: 60 * time.Second,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("assistant: %w", err)
		}
		agent = agentClient
	}
	assistant.NewHandler(assistant.NewService(agent)).RegisterRoutes(protected)

	websocket.NewHandler(hub, cfg.CORSOrigins, logger).RegisterRoutes(e, requireSession)

	// Dashboard bundle, with index.html for client-side routes
	if dir := cfg.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
				Root:    dir,
				HTML5:   true,
				Skipper: skipStatic,
			}))
		} else {
			logger.Warn().Str("dir", dir).Msg("static dir not found, serving API only")
		}
	}

	return e, nil
}

func skipStatic(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/") || path == "/ws" || auth.IsInfrastructurePath(path)
}
