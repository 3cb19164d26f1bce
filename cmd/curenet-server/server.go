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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/config"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/booking"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/catalog"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/pharmacy"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/portal"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/records"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/accountapi"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/db"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/jobs"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/kv"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/middleware"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/session"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/websocket"
)

const kvPrefix = "curenet:"

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Sessions and staged bookings
	store, closeStore, err := openKV(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open key-value store")
	}
	defer closeStore()
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; sessions and staged bookings are kept in memory")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(e, logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// API groups
	tokens := auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	// The limiter runs after authentication so it can key on the user.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:          tokens,
		Skipper:         auth.AuthSkipper,
		AllowQueryToken: true,
	}))
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	portalGroup := e.Group("/portal")

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Real-time notifications
	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Accounts
	accountSvc := account.NewService(account.NewUserRepoPG(pool), account.NewProfileRepoPG(pool), tokens)
	account.NewHandler(accountSvc).RegisterRoutes(apiV1)

	// Hospitals and doctors
	catalogSvc := catalog.NewService(catalog.NewHospitalRepoPG(pool), catalog.NewDoctorRepoPG(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Appointments
	bookingSvc := booking.NewService(appointmentRepo(cfg, pool), store, catalogSvc, cfg.StagingTTL, logger)
	bookingSvc.SetPublisher(hub)
	booking.NewHandler(bookingSvc).RegisterRoutes(apiV1)
	logger.Info().Str("store", cfg.AppointmentStore).Msg("appointment store ready")

	// Medical records
	recordsSvc := records.NewService(records.NewRepoPG(pool), accountSvc)
	records.NewHandler(recordsSvc).RegisterRoutes(apiV1)

	// Pharmacy
	pharmacySvc := pharmacy.NewService(
		pharmacy.NewMedicineRepoPG(pool),
		pharmacy.NewCartRepoPG(pool),
		pharmacy.NewOrderRepoPG(pool),
		logger,
	)
	pharmacySvc.SetPublisher(hub)
	importer := pharmacy.NewImporter(pharmacySvc, cfg.DailyMedURL, logger)
	pharmacy.NewHandler(pharmacySvc, importer).RegisterRoutes(apiV1)

	// Session-cookie portal
	sessions := session.NewManager(store, session.Config{
		CookieName: cfg.SessionCookie,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	})
	portal.NewHandler(accountBackend(cfg, accountSvc), bookingSvc, pharmacySvc, sessions, logger).
		RegisterRoutes(portalGroup, middleware.RateLimit(rateLimitCfg))
	logger.Info().Str("accounts", cfg.AccountBackend).Msg("portal ready")

	// Background jobs
	scheduler := jobs.NewScheduler(logger)
	if p, ok := store.(kv.Purger); ok {
		if err := scheduler.Add("purge-expired", jobs.PurgeSchedule, jobs.PurgeExpired(p, logger)); err != nil {
			return err
		}
	}
	if err := scheduler.Add("low-stock", jobs.LowStockSchedule, pharmacySvc.LowStockReport(cfg.LowStockThreshold)); err != nil {
		return err
	}
	scheduler.Start()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openKV returns a Redis store when url is set, otherwise an in-process one.
// The returned func releases the store.
func openKV(ctx context.Context, url string) (kv.Store, func(), error) {
	if url == "" {
		return kv.NewMemoryStore(), func() {}, nil
	}
	rs, err := kv.NewRedisStore(ctx, url, kvPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("open redis: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}

func appointmentRepo(cfg *config.Config, pool *pgxpool.Pool) booking.Repository {
	if cfg.AppointmentStore == config.StoreFile {
		return booking.NewFileRepo(cfg.AppointmentsFile)
	}
	return booking.NewRepoPG(pool)
}

func accountBackend(cfg *config.Config, local *account.Service) portal.AccountBackend {
	if cfg.AccountBackend == config.AccountRemote {
		return portal.NewRemoteAccounts(accountapi.New(cfg.AccountAPIURL))
	}
	return portal.NewLocalAccounts(local)
}
