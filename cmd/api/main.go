package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"farmsmart/internal/backend"
	"farmsmart/internal/config"
	"farmsmart/internal/db"
	"farmsmart/internal/httpserver"
	"farmsmart/internal/identity"
	"farmsmart/internal/logging"
	"farmsmart/internal/migrate"
	sessionrepo "farmsmart/internal/repository/session"
	"farmsmart/internal/seed"
	"farmsmart/internal/workspace"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := logging.New("api", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		dbpool *pgxpool.Pool
		store  sessionrepo.Repository
	)
	if cfg.DBConnString != "" {
		dbpool, err = db.Connect(ctx, cfg.DBConnString, logger)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer dbpool.Close()
		if _, err := migrate.Apply(ctx, dbpool, logger); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		store = sessionrepo.NewPostgres(dbpool, logger.Named("sessions"))
	} else {
		logger.Warn("DB_DSN not set, sessions are kept in memory")
		store = sessionrepo.NewMemory()
	}

	var facade workspace.Facade
	if cfg.BackendURL != "" {
		facade = backend.NewHTTP(cfg.BackendURL, cfg.BackendTimeout, logger.Named("backend"))
	} else {
		logger.Warn("BACKEND_URL not set, using the in-process dev backend with sample data")
		mem := backend.NewMemory()
		seed.Apply(mem)
		facade = mem
	}

	issuer := identity.NewIssuer(cfg.IdentitySecret)
	providers := func() identity.Provider { return identity.NewDevProvider(issuer, cfg.DelegationTTL) }
	if cfg.IdentityURL != "" {
		idClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: cfg.BackendTimeout}
		providers = func() identity.Provider {
			return identity.NewHTTPProvider(cfg.IdentityURL, idClient, issuer, logger.Named("identity"))
		}
	} else {
		logger.Warn("IDENTITY_URL not set, delegations are signed locally")
	}

	registry := workspace.NewRegistry(workspace.Dependencies{
		Backend:   facade,
		Providers: providers,
		Issuer:    issuer,
		Store:     store,
		Logger:    logger.Named("workspace"),
	}, cfg.SessionIdle)
	go registry.Run(ctx, cfg.SessionIdle/4)

	gin.SetMode(gin.ReleaseMode)
	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Workspaces:    registry,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
