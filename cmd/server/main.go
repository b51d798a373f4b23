// Command server starts the reviewdeck API HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"reviewdeck/internal/api"
	"reviewdeck/internal/auth"
	"reviewdeck/internal/mail"
	"reviewdeck/internal/observability/logging"
	"reviewdeck/internal/observability/metrics"
	"reviewdeck/internal/server"
	"reviewdeck/internal/storage"
)

func main() {
	// A missing .env is fine; explicit environment always wins because
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to the JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	secret := flag.String("secret", "", "signing secret for tokens and confirmation codes")
	confirmationTTL := flag.Duration("confirmation-ttl", 0, "validity window for emailed confirmation codes")
	tokenTTL := flag.Duration("token-ttl", 0, "validity window for issued access tokens")
	codeStoreDriver := flag.String("code-store", "", "used-code store driver (memory or redis)")
	codeRedisAddr := flag.String("code-redis-addr", "", "Redis address for the shared used-code store")
	codeRedisAddrs := flag.String("code-redis-addrs", "", "comma separated Redis addresses for the used-code store")
	codeRedisUsername := flag.String("code-redis-username", "", "Redis username for the used-code store")
	codeRedisPassword := flag.String("code-redis-password", "", "Redis password for the used-code store")
	codeRedisMaster := flag.String("code-redis-sentinel-master", "", "Redis sentinel master name for the used-code store")
	codeRedisPoolSize := flag.Int("code-redis-pool-size", 0, "maximum Redis connections for the used-code store")
	codeRedisTimeout := flag.Duration("code-redis-timeout", 0, "timeout for used-code store Redis operations")
	codePurgeInterval := flag.Duration("code-purge-interval", 0, "interval between in-memory used-code purges")
	mailerDriver := flag.String("mailer", "", "confirmation mail delivery (log or smtp)")
	smtpHost := flag.String("smtp-host", "", "SMTP relay host")
	smtpPort := flag.Int("smtp-port", 0, "SMTP relay port")
	smtpUsername := flag.String("smtp-username", "", "SMTP username")
	smtpPassword := flag.String("smtp-password", "", "SMTP password")
	smtpFrom := flag.String("smtp-from", "", "From address for confirmation mail")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (text or json)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	authLimit := flag.Int("rate-auth-limit", 0, "maximum auth attempts per window for a single IP")
	authWindow := flag.Duration("rate-auth-window", 0, "window for counting auth attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed auth throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed auth throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for rate limiter Redis operations")
	corsOrigins := flag.String("cors-allowed-origins", "", "comma separated origins allowed to call the API")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("REVIEWDECK_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("REVIEWDECK_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	signingSecret := firstNonEmpty(*secret, os.Getenv("REVIEWDECK_SECRET"))
	if signingSecret == "" {
		logger.Error("signing secret required", "hint", "set --secret or REVIEWDECK_SECRET")
		os.Exit(1)
	}

	store, storeClose, err := openRepository(repositoryOptions{
		Driver:          firstNonEmpty(*storageDriver, os.Getenv("REVIEWDECK_STORAGE_DRIVER")),
		DataPath:        resolveDataPath(*dataPath, os.Getenv("REVIEWDECK_DATA")),
		PostgresDSN:     resolvePostgresDSN(*postgresDSN),
		MaxConns:        resolveInt(*postgresMaxConns, "REVIEWDECK_POSTGRES_MAX_CONNS"),
		MinConns:        resolveInt(*postgresMinConns, "REVIEWDECK_POSTGRES_MIN_CONNS"),
		MaxConnLifetime: resolveDuration(*postgresMaxConnLifetime, "REVIEWDECK_POSTGRES_MAX_CONN_LIFETIME", 0),
		MaxConnIdle:     resolveDuration(*postgresMaxConnIdle, "REVIEWDECK_POSTGRES_MAX_CONN_IDLE", 0),
		HealthInterval:  resolveDuration(*postgresHealthInterval, "REVIEWDECK_POSTGRES_HEALTH_INTERVAL", 0),
		AppName:         firstNonEmpty(*postgresAppName, os.Getenv("REVIEWDECK_POSTGRES_APP_NAME")),
	})
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}
	defer storeClose(context.Background())

	codeStore, memoryCodes, codeClose, err := openCodeStore(codeStoreOptions{
		Driver:     firstNonEmpty(*codeStoreDriver, os.Getenv("REVIEWDECK_CODE_STORE")),
		Addr:       firstNonEmpty(*codeRedisAddr, os.Getenv("REVIEWDECK_CODE_REDIS_ADDR")),
		Addrs:      splitAndTrim(firstNonEmpty(*codeRedisAddrs, os.Getenv("REVIEWDECK_CODE_REDIS_ADDRS"))),
		Username:   firstNonEmpty(*codeRedisUsername, os.Getenv("REVIEWDECK_CODE_REDIS_USERNAME")),
		Password:   firstNonEmpty(*codeRedisPassword, os.Getenv("REVIEWDECK_CODE_REDIS_PASSWORD")),
		MasterName: firstNonEmpty(*codeRedisMaster, os.Getenv("REVIEWDECK_CODE_REDIS_SENTINEL_MASTER")),
		PoolSize:   resolveInt(*codeRedisPoolSize, "REVIEWDECK_CODE_REDIS_POOL_SIZE"),
		Timeout:    resolveDuration(*codeRedisTimeout, "REVIEWDECK_CODE_REDIS_TIMEOUT", 2*time.Second),
	})
	if err != nil {
		logger.Error("failed to configure used-code store", "error", err)
		os.Exit(1)
	}
	defer codeClose()

	codes, err := auth.NewConfirmationManager(
		[]byte(signingSecret),
		resolveDuration(*confirmationTTL, "REVIEWDECK_CONFIRMATION_TTL", auth.DefaultConfirmationTTL),
		auth.WithUsedCodeStore(codeStore),
	)
	if err != nil {
		logger.Error("failed to configure confirmation codes", "error", err)
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager(
		[]byte(signingSecret),
		resolveDuration(*tokenTTL, "REVIEWDECK_TOKEN_TTL", auth.DefaultTokenTTL),
	)
	if err != nil {
		logger.Error("failed to configure tokens", "error", err)
		os.Exit(1)
	}

	mailer, err := buildMailer(mailerOptions{
		Driver:   firstNonEmpty(*mailerDriver, os.Getenv("REVIEWDECK_MAILER")),
		Host:     firstNonEmpty(*smtpHost, os.Getenv("REVIEWDECK_SMTP_HOST")),
		Port:     resolveInt(*smtpPort, "REVIEWDECK_SMTP_PORT"),
		Username: firstNonEmpty(*smtpUsername, os.Getenv("REVIEWDECK_SMTP_USERNAME")),
		Password: firstNonEmpty(*smtpPassword, os.Getenv("REVIEWDECK_SMTP_PASSWORD")),
		From:     firstNonEmpty(*smtpFrom, os.Getenv("REVIEWDECK_SMTP_FROM")),
	}, logging.WithComponent(logger, "mail"))
	if err != nil {
		logger.Error("failed to configure mailer", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, codes, tokens, mailer)
	handler.Metrics = recorder
	handler.Logger = logging.WithComponent(logger, "api")
	if pinger, ok := codeStore.(api.Pinger); ok {
		handler.CodeStore = pinger
	}

	listenAddr := firstNonEmpty(*addr, os.Getenv("REVIEWDECK_ADDR"))
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	tlsCfg := server.TLSConfig{
		CertFile: firstNonEmpty(*tlsCert, os.Getenv("REVIEWDECK_TLS_CERT")),
		KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("REVIEWDECK_TLS_KEY")),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS:  tlsCfg,
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "REVIEWDECK_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "REVIEWDECK_RATE_GLOBAL_BURST"),
			AuthLimit:     resolveInt(*authLimit, "REVIEWDECK_RATE_AUTH_LIMIT"),
			AuthWindow:    resolveDuration(*authWindow, "REVIEWDECK_RATE_AUTH_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("REVIEWDECK_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("REVIEWDECK_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*rateRedisTimeout, "REVIEWDECK_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("REVIEWDECK_CORS_ALLOWED_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var purgeable codePurger
	if memoryCodes != nil {
		purgeable = memoryCodes
	}
	purgeStop := startCodePurgeWorker(
		ctx,
		logging.WithComponent(logger, "code-purger"),
		purgeable,
		resolveDuration(*codePurgeInterval, "REVIEWDECK_CODE_PURGE_INTERVAL", 15*time.Minute),
	)
	defer purgeStop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("reviewdeck API listening", "addr", listenAddr)
		if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
			logger.Info("TLS enabled", "cert_file", tlsCfg.CertFile)
		}
		logger.Info("metrics endpoint available", "path", "/metrics")
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	purgeStop()
	logger.Info("server stopped")
}

type repositoryOptions struct {
	Driver          string
	DataPath        string
	PostgresDSN     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdle     time.Duration
	HealthInterval  time.Duration
	AppName         string
}

func openRepository(opts repositoryOptions) (storage.Repository, func(context.Context), error) {
	driver, err := resolveStorageDriver(opts.Driver, opts.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case "json":
		store, err := storage.NewStorage(opts.DataPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func(context.Context) {}, nil
	case "postgres":
		if opts.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("postgres storage selected without DSN")
		}
		openCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		repo, err := storage.NewPostgresRepository(openCtx, storage.PostgresConfig{
			DSN:                 opts.PostgresDSN,
			MaxConnections:      int32(opts.MaxConns),
			MinConnections:      int32(opts.MinConns),
			MaxConnLifetime:     opts.MaxConnLifetime,
			MaxConnIdleTime:     opts.MaxConnIdle,
			HealthCheckInterval: opts.HealthInterval,
			ApplicationName:     opts.AppName,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func(ctx context.Context) { _ = repo.Close(ctx) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

type codeStoreOptions struct {
	Driver     string
	Addr       string
	Addrs      []string
	Username   string
	Password   string
	MasterName string
	PoolSize   int
	Timeout    time.Duration
}

// openCodeStore returns the configured single-use code store. The second
// return value is non-nil only for the in-memory store, which needs the
// periodic purge worker; Redis entries expire on their own.
func openCodeStore(opts codeStoreOptions) (auth.UsedCodeStore, *auth.MemoryUsedCodeStore, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", "memory":
		store := auth.NewMemoryUsedCodeStore()
		return store, store, func() {}, nil
	case "redis":
		store, err := auth.NewRedisUsedCodeStore(auth.RedisCodeStoreConfig{
			Addr:         opts.Addr,
			Addrs:        opts.Addrs,
			Username:     opts.Username,
			Password:     opts.Password,
			MasterName:   opts.MasterName,
			PoolSize:     opts.PoolSize,
			DialTimeout:  opts.Timeout,
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() { _ = store.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported used-code store driver %q", driver)
	}
}

type mailerOptions struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func buildMailer(opts mailerOptions, logger *slog.Logger) (mail.Mailer, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "smtp":
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     opts.Host,
			Port:     opts.Port,
			Username: opts.Username,
			Password: opts.Password,
			From:     opts.From,
		})
	case "", "log":
		return &mail.LogMailer{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported mailer driver %q", driver)
	}
}

func resolveStorageDriver(flagValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(envValue); v != "" {
		return v
	}
	return "data/reviewdeck.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("REVIEWDECK_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
