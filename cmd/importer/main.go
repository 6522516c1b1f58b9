package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"farmsmart/internal/backend"
	"farmsmart/internal/config"
	"farmsmart/internal/identity"
	"farmsmart/internal/importer"
	"farmsmart/internal/logging"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	sessionrepo "farmsmart/internal/repository/session"
	"farmsmart/internal/service/listing"
	"farmsmart/internal/service/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath  string
		assertion string
	)
	flag.StringVar(&filePath, "file", "", "Path to the products/listings CSV")
	flag.StringVar(&assertion, "as", "", "Identity assertion to log in with (dev provider: the principal)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger, err := logging.New("importer", cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.BackendURL == "" {
		logger.Fatal("BACKEND_URL is required")
	}

	issuer := identity.NewIssuer(cfg.IdentitySecret)
	var provider identity.Provider = identity.NewDevProvider(issuer, cfg.DelegationTTL)
	if cfg.IdentityURL != "" {
		provider = identity.NewHTTPProvider(cfg.IdentityURL, &http.Client{Timeout: cfg.BackendTimeout}, issuer, logger.Named("identity"))
	}

	ctx := context.Background()
	cache := query.New(logger.Named("query"))
	toasts := notify.NewQueue(logger.Named("toast"))
	sess := session.New(uuid.NewString(), provider, issuer, sessionrepo.NewMemory(), cache, toasts, logger.Named("session"))
	if _, err := sess.Login(ctx, assertion); err != nil {
		logger.Fatal("login", zap.Error(err))
	}
	defer func() {
		if err := sess.Logout(ctx); err != nil {
			logger.Warn("logout", zap.Error(err))
		}
	}()

	client := backend.NewHTTP(cfg.BackendURL, cfg.BackendTimeout, logger.Named("backend")).ForCaller(sess)
	listings := listing.New(client, sess, cache, toasts, logger.Named("listing"))

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	start := time.Now()
	res, err := importer.NewCSVImporter(f, listings, logger).Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err), zap.Int("products", res.Products), zap.Int("listings", res.Listings))
	}
	for _, r := range res.Rejected {
		fmt.Printf("line %d rejected: %s\n", r.Line, r.Fields.Error())
	}

	fmt.Printf("Imported %d products and %d crop listings as %s in %s\n",
		res.Products, res.Listings, sess.Principal(), time.Since(start).Truncate(time.Millisecond))
}
