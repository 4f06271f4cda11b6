package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anonto42/studynest/backend/internal/ai"
	"github.com/anonto42/studynest/backend/internal/handlers"
	"github.com/anonto42/studynest/backend/internal/notify"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/internal/router"
	"github.com/anonto42/studynest/backend/internal/storage"
	"github.com/anonto42/studynest/backend/internal/validators"
	"github.com/anonto42/studynest/backend/pkg/config"
	"github.com/anonto42/studynest/backend/pkg/firebase"
	"github.com/anonto42/studynest/backend/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = repositories.EnsureIndexes(indexCtx, db.Database)
	cancel()
	if err != nil {
		return err
	}

	userRepo := repositories.NewMongoUserRepository(db.Database)
	notificationRepo := repositories.NewMongoNotificationRepository(db.Database)
	outboxRepo := repositories.NewMongoOutboxRepository(db.Database)

	var blacklist repositories.TokenBlacklist = repositories.NewMongoTokenBlacklist(db.Database)
	if db.Postgres != nil {
		pgBlacklist, err := repositories.NewPostgresTokenBlacklist(db.Postgres)
		if err != nil {
			return err
		}
		blacklist = pgBlacklist
		go purgeRevokedTokens(ctx, pgBlacklist, zlog)
	}

	// Firebase is optional; without it firebase-login is disabled and uploads stay local.
	var (
		firebaseAuth handlers.IDTokenVerifier
		backend      storage.Backend
	)
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket, zlog)
		if err != nil {
			return err
		}
		firebaseAuth = app.AuthClient
		if app.Bucket != nil {
			backend = storage.NewFirebaseStorage(app.Bucket, app.BucketName)
		}
	}
	localUploads := backend == nil
	if localUploads {
		local, err := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
		if err != nil {
			return err
		}
		backend = local
	}

	aiClient, err := ai.New(ai.Config{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, zlog)
	if err != nil {
		return fmt.Errorf("failed to initialize AI client: %w", err)
	}

	fanout := notify.NewService(userRepo, notificationRepo, zlog)

	var (
		wg        sync.WaitGroup
		publisher notify.Publisher
	)
	switch cfg.NotifyMode {
	case config.NotifyModeDirect:
		publisher = notify.NewDirectPublisher(fanout)
	case config.NotifyModeNATS:
		conn, err := nats.Connect(cfg.NatsURL, nats.Name("studynest-api"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer conn.Close()
		subscriber := notify.NewSubscriber(conn, fanout, zlog)
		if err := subscriber.Start(); err != nil {
			return err
		}
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := subscriber.Stop(drainCtx); err != nil {
				zlog.Warn("failed to drain fan-out subscription", zap.Error(err))
			}
		}()
		publisher = notify.NewNATSPublisher(conn)
	default:
		worker := notify.NewWorker(outboxRepo, fanout, cfg.OutboxPollInterval, cfg.OutboxLease, zlog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
		publisher = notify.NewOutboxPublisher(outboxRepo)
	}
	zlog.Info("notification delivery configured", zap.String("mode", cfg.NotifyMode))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	v := validators.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(v, zlog)

	config.SetupMiddleware(e, cfg, zlog)
	if localUploads {
		e.Static("/uploads", cfg.UploadDir)
	}
	router.SetupRoutes(e, router.Dependencies{
		Config:        cfg,
		DB:            db,
		Users:         userRepo,
		Blacklist:     blacklist,
		Notifications: notificationRepo,
		Storage:       backend,
		AI:            aiClient,
		Fanout:        fanout,
		Publisher:     publisher,
		FirebaseAuth:  firebaseAuth,
		Logger:        zlog,
	})

	metrics := metricsServer(cfg.MetricsPort, zlog)

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http server shutdown failed", zap.Error(err))
	}
	if metrics != nil {
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			zlog.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
	wg.Wait()
	zlog.Info("server stopped")
	return nil
}

// purgeRevokedTokens drops expired deny-list rows. Mongo does this with a TTL index.
func purgeRevokedTokens(ctx context.Context, blacklist *repositories.PostgresTokenBlacklist, zlog *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := blacklist.PurgeExpired(ctx)
			if err != nil {
				zlog.Warn("failed to purge revoked tokens", zap.Error(err))
				continue
			}
			zlog.Debug("purged revoked tokens", zap.Int64("count", n))
		}
	}
}

func metricsServer(port string, zlog *zap.Logger) *http.Server {
	if port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
