package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trust-service/internal/adapters/eventbus"
	"trust-service/internal/adapters/memory"
	"trust-service/internal/adapters/postgres"
	"trust-service/internal/adapters/providers/liveness"
	"trust-service/internal/adapters/providers/ocr"
	"trust-service/internal/adapters/providers/sms"
	"trust-service/internal/adapters/queue"
	redisadapter "trust-service/internal/adapters/redis"
	"trust-service/internal/adapters/security"
	"trust-service/internal/adapters/storage"
	"trust-service/internal/core/ports"
	"trust-service/internal/core/services"
	"trust-service/internal/shared/config"
	"trust-service/internal/shared/logger"
	httptransport "trust-service/internal/transport/http"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.DevMode())
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("store_driver", cfg.StoreDriver).
		Str("sms_provider", cfg.SMSProvider).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Security Service
	keyBytes, err := cfg.EncryptionKeyBytes()
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to decode ENCRYPTION_KEY")
	}
	secSvc, err := security.NewAESService(keyBytes, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize security service")
	}

	// 4. Repositories
	var (
		userRepo ports.UserRepository
		smsRepo  ports.SMSVerificationRepository
		liveRepo ports.LivenessRepository
		docRepo  ports.IDVerificationRepository
		revRepo  ports.ReviewRepository
		txRepo   ports.TransactionRepository
	)
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		userRepo = postgres.NewUserRepository(db, secSvc, &baseLogger)
		smsRepo = postgres.NewSMSRepository(db, secSvc, &baseLogger)
		liveRepo = postgres.NewLivenessRepository(db, &baseLogger)
		docRepo = postgres.NewDocumentRepository(db, &baseLogger)
		revRepo = postgres.NewReviewRepository(db, &baseLogger)
		txRepo = postgres.NewTransactionRepository(db, &baseLogger)
	case "memory":
		userRepo = memory.NewUserStore()
		smsRepo = memory.NewSMSStore()
		liveRepo = memory.NewLivenessStore()
		docRepo = memory.NewDocumentStore()
		revRepo = memory.NewReviewStore()
		txRepo = memory.NewTransactionStore()
	default:
		baseLogger.Fatal().Str("driver", cfg.StoreDriver).Msg("Unknown store driver")
	}

	// 5. Rate Limiter
	var limiter ports.RateLimiter
	if cfg.RedisURL != "" {
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()
		limiter = redisadapter.NewRateLimiter(client, &baseLogger)
	} else {
		baseLogger.Warn().Msg("REDIS_URL not set, using in-process rate limiter")
		limiter = memory.NewRateLimiter()
	}

	// 6. Blob Store
	var blobs ports.BlobStore
	if cfg.S3Bucket != "" {
		blobs, err = storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize S3 store")
		}
	} else {
		baseLogger.Warn().Msg("S3_BUCKET not set, using in-memory blob store")
		blobs = storage.NewMemoryStore()
	}

	// 7. Providers
	sender := buildSMSSender(cfg, &baseLogger)
	analyzer := buildAnalyzer(cfg, &baseLogger)
	extractor := buildExtractor(cfg, &baseLogger)

	// 8. Event Bus and Task Dispatcher
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	dispatcher := queue.NewDispatcher(cfg.QueueWorkers, cfg.QueueBuffer, &baseLogger)

	// 9. Services
	smsSvc := services.NewSMSService(smsRepo, userRepo, sender, limiter, bus, services.SMSConfig{}, &baseLogger)
	liveSvc := services.NewLivenessService(liveRepo, userRepo, analyzer, blobs, dispatcher, bus, services.LivenessConfig{}, &baseLogger)
	docSvc := services.NewDocumentService(docRepo, userRepo, liveRepo, extractor, analyzer, blobs, dispatcher, bus, secSvc, services.DocumentConfig{}, &baseLogger)
	trustSvc := services.NewTrustService(userRepo, revRepo, &baseLogger)
	reviewSvc := services.NewReviewService(revRepo, txRepo, userRepo, bus, &baseLogger)
	retentionSvc := services.NewRetentionService(smsRepo, liveRepo, docRepo, blobs,
		services.RetentionConfig{SweepInterval: cfg.RetentionInterval}, &baseLogger)

	trustSvc.Subscribe(bus)
	dispatcher.Register(ports.TaskLivenessAnalysis, liveSvc.ProcessSession)
	dispatcher.Register(ports.TaskDocumentCheck, docSvc.ProcessSubmission)

	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			baseLogger.Error().Err(err).Msg("Task dispatcher exited")
		}
	}()
	go func() {
		if err := retentionSvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			baseLogger.Error().Err(err).Msg("Retention sweeper exited")
		}
	}()

	// 10. HTTP Server
	router := httptransport.NewRouter(
		httptransport.NewSMSHandler(smsSvc),
		httptransport.NewLivenessHandler(liveSvc),
		httptransport.NewDocumentHandler(docSvc),
		httptransport.NewReviewHandler(reviewSvc),
		&baseLogger,
	)
	server := &nethttp.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		baseLogger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			baseLogger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	baseLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	baseLogger.Info().Msg("Shutdown complete")
}

func buildSMSSender(cfg *config.Config, log *zerolog.Logger) ports.SMSSender {
	switch cfg.SMSProvider {
	case "smsc":
		return sms.NewSMSCSender(sms.SMSCConfig{
			Login:  cfg.SMSCLogin,
			Pass:   cfg.SMSCPass,
			Sender: cfg.SMSCSender,
		}, log)
	default:
		return sms.NewDevSender(log)
	}
}

func buildAnalyzer(cfg *config.Config, log *zerolog.Logger) ports.LivenessAnalyzer {
	switch cfg.LivenessProvider {
	case "http":
		return liveness.NewHTTPAnalyzer(liveness.HTTPConfig{
			BaseURL: cfg.LivenessAPIURL,
			APIKey:  cfg.LivenessAPIKey,
		}, log)
	default:
		return liveness.NewStubAnalyzer(log)
	}
}

func buildExtractor(cfg *config.Config, log *zerolog.Logger) ports.OCRExtractor {
	switch cfg.OCRProvider {
	case "http":
		return ocr.NewHTTPExtractor(ocr.HTTPConfig{
			BaseURL: cfg.OCRAPIURL,
			APIKey:  cfg.OCRAPIKey,
		}, log)
	default:
		return ocr.NewStubExtractor(log)
	}
}
