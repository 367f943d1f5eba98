package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kyc-ledger/internal/application/kyc"
	"github.com/kyc-ledger/internal/application/notification"
	"github.com/kyc-ledger/internal/application/user"
	"github.com/kyc-ledger/internal/config"
	"github.com/kyc-ledger/internal/directory"
	"github.com/kyc-ledger/internal/infrastructure/dynamo"
	jwtinfra "github.com/kyc-ledger/internal/infrastructure/jwt"
	redisinfra "github.com/kyc-ledger/internal/infrastructure/redis"
	s3infra "github.com/kyc-ledger/internal/infrastructure/s3"
	"github.com/kyc-ledger/internal/infrastructure/smtp"
	"github.com/kyc-ledger/internal/infrastructure/sns"
	"github.com/kyc-ledger/internal/ledger"
	"github.com/kyc-ledger/internal/metrics"
	transporthttp "github.com/kyc-ledger/internal/transport/http"
	"github.com/kyc-ledger/internal/transport/http/handler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := config.NewLogger(cfg)
	slog.SetDefault(log)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	checks := map[string]handler.HealthCheck{
		"dynamodb": func(ctx context.Context) error { return dynamo.Ready(ctx, dynamoClient, cfg.DynamoTables) },
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
	documentRepo := dynamo.NewDocumentRepo(dynamoClient, cfg.DynamoTables.Documents)

	// User directory, cached in Redis when configured.
	userDirectory := directory.NewRepo(userRepo)
	var dir ledger.UserDirectory = userDirectory
	userDeps := user.ServiceDeps{UserRepo: userRepo, Logger: log}
	redisClient, err := redisinfra.New(cfg)
	switch {
	case err != nil:
		log.Warn("redis not available, directory cache disabled", "err", err)
	case redisClient != nil:
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		cached := directory.NewCached(userDirectory, redisClient, cfg.DirectoryCacheTTL, log)
		dir = cached
		userDeps.Cache = cached
	}

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	notifSvc := notification.NewService(notificationRepo)
	notifierDeps := kyc.NotifierDeps{
		Notices:   notifSvc,
		Users:     userRepo,
		Metrics:   m,
		QueueSize: cfg.NotifyQueueSize,
		Logger:    log,
	}
	if cfg.SMTPEnabled {
		notifierDeps.Mailer = smtp.NewMailer(cfg)
	}
	if cfg.SNSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			notifierDeps.SMS = sender
		} else {
			log.Warn("SNS sender not available", "err", err)
		}
	}
	notifier := kyc.NewNotifier(notifierDeps)

	led := ledger.New(dir,
		ledger.WithStore(verificationRepo),
		ledger.WithObserver(notifier),
		ledger.WithLogger(log),
	)
	n, err := led.Load(ctx)
	if err != nil {
		return err
	}
	m.SetRecordCounts(led.Summary(ctx))
	log.Info("verification records loaded", "count", n)

	// JWT provider (verify-only when the private key is absent).
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	deps := &transporthttp.Deps{
		Users: user.NewService(userDeps),
		KYC: kyc.NewService(kyc.ServiceDeps{
			Ledger:     led,
			Objects:    s3Store,
			Documents:  documentRepo,
			Metrics:    m,
			PresignTTL: cfg.PresignTTL,
			Logger:     log,
		}),
		Notifications: notifSvc,
		Tokens:        jwtProvider,
		Metrics:       metricsHandler,
		HealthChecks:  checks,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
