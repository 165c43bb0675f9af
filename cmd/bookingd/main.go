package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/moimlab/booking/internal/events"
	"github.com/moimlab/booking/internal/httpapi"
	"github.com/moimlab/booking/internal/oplog"
	"github.com/moimlab/booking/internal/store/gormstore"
	"github.com/moimlab/booking/internal/sweeper"
	"github.com/moimlab/booking/pkg/booking"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagWebhookSecret      = "webhook-secret"
	flagAMQPURL            = "amqp-url"
	flagRedisAddr          = "redis-addr"
	flagSweepInterval      = "sweep-interval"
	flagTransferDeadline   = "transfer-deadline"
	flagAllowedOrigins     = "allowed-origins"
	configKeyDatabaseURL   = "database_url"
	configKeyListenAddr    = "listen_addr"
	configKeyWebhookSecret = "webhook_secret"
	configKeyAMQPURL       = "amqp_url"
	configKeyRedisAddr     = "redis_addr"
	configKeySweepInterval = "sweep_interval"
	configKeyTransferHours = "transfer_deadline"
	configKeyOrigins       = "allowed_origins"
	defaultDatabaseURL     = "sqlite:///tmp/booking.db"
	defaultListenAddr      = ":8080"
	defaultSweepInterval   = time.Minute
	defaultTransferWindow  = 24 * time.Hour
)

type runtimeConfig struct {
	DatabaseURL      string
	ListenAddr       string
	WebhookSecret    string
	AMQPURL          string
	RedisAddr        string
	SweepInterval    time.Duration
	TransferDeadline time.Duration
	AllowedOrigins   []string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bookingd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "bookingd",
		Short:         "Capacity reservation and payment confirmation server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagWebhookSecret, "", "shared secret for payment webhook signatures")
	cmd.Flags().String(flagAMQPURL, "", "RabbitMQ URL for domain events (optional)")
	cmd.Flags().String(flagRedisAddr, "", "Redis address for rate limiting (optional)")
	cmd.Flags().Duration(flagSweepInterval, defaultSweepInterval, "deadline sweep interval")
	cmd.Flags().Duration(flagTransferDeadline, defaultTransferWindow, "manual transfer payment window")
	cmd.Flags().StringSlice(flagAllowedOrigins, nil, "CORS allowed origins")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	envBindings := map[string]string{
		configKeyDatabaseURL:   "DATABASE_URL",
		configKeyListenAddr:    "HTTP_LISTEN_ADDR",
		configKeyWebhookSecret: "WEBHOOK_SECRET",
		configKeyAMQPURL:       "AMQP_URL",
		configKeyRedisAddr:     "REDIS_ADDR",
		configKeySweepInterval: "SWEEP_INTERVAL",
		configKeyTransferHours: "TRANSFER_DEADLINE",
		configKeyOrigins:       "ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	flagBindings := map[string]string{
		configKeyDatabaseURL:   flagDatabaseURL,
		configKeyListenAddr:    flagListenAddr,
		configKeyWebhookSecret: flagWebhookSecret,
		configKeyAMQPURL:       flagAMQPURL,
		configKeyRedisAddr:     flagRedisAddr,
		configKeySweepInterval: flagSweepInterval,
		configKeyTransferHours: flagTransferDeadline,
		configKeyOrigins:       flagAllowedOrigins,
	}
	for key, flag := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.WebhookSecret = viper.GetString(configKeyWebhookSecret)
	cfg.AMQPURL = viper.GetString(configKeyAMQPURL)
	cfg.RedisAddr = viper.GetString(configKeyRedisAddr)
	cfg.SweepInterval = viper.GetDuration(configKeySweepInterval)
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	cfg.TransferDeadline = viper.GetDuration(configKeyTransferHours)
	if cfg.TransferDeadline <= 0 {
		cfg.TransferDeadline = defaultTransferWindow
	}
	cfg.AllowedOrigins = viper.GetStringSlice(configKeyOrigins)

	if cfg.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	store := gormstore.New(gormDB)

	var publisher booking.EventPublisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, rabbitErr := events.NewRabbitPublisher(cfg.AMQPURL, logger)
		if rabbitErr != nil {
			return fmt.Errorf("event publisher init: %w", rabbitErr)
		}
		defer func() { _ = rabbit.Close() }()
		publisher = rabbit
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = redisClient.Close() }()
	}

	bookingService, err := booking.NewService(store, func() time.Time { return time.Now().UTC() },
		booking.WithOperationLogger(oplog.New(logger)),
		booking.WithEventPublisher(publisher),
		booking.WithTransferDeadline(cfg.TransferDeadline),
	)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}

	server, err := httpapi.New(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		WebhookSecret:  cfg.WebhookSecret,
	}, bookingService, redisClient, logger)
	if err != nil {
		return fmt.Errorf("http server init: %w", err)
	}

	deadlineSweeper := sweeper.New(bookingService, logger, sweeper.WithInterval(cfg.SweepInterval))

	errCh := make(chan error, 2)
	go func() { errCh <- server.Run(ctx) }()
	go func() { errCh <- deadlineSweeper.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
		<-errCh
		return nil
	case serveErr := <-errCh:
		return serveErr
	}
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	gormCfg := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormCfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "booking.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	err := db.AutoMigrate(
		&gormstore.Meeting{},
		&gormstore.Registration{},
		&gormstore.WaitlistEntry{},
		&gormstore.RefundPolicy{},
		&gormstore.PaymentEvent{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
