package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"youngcheol/moneyhunter/config"
	"youngcheol/moneyhunter/internal/adapter"
	"youngcheol/moneyhunter/internal/classify"
	"youngcheol/moneyhunter/logger"
	"youngcheol/moneyhunter/services/cache"
	"youngcheol/moneyhunter/services/fetcher"
	"youngcheol/moneyhunter/services/notifier"
	"youngcheol/moneyhunter/services/publisher"
	"youngcheol/moneyhunter/services/store"
	"youngcheol/moneyhunter/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Create sources
	sources, errs := adapter.CreateSources(cfg)
	for _, cerr := range errs {
		log.Error().Err(cerr).Msg("Failed to create source")
	}
	if len(sources) == 0 {
		log.Fatal().Msg("No sources were created")
	}

	log.Info().
		Int("source_count", len(sources)).
		Msg("Created sources")

	classifier := classify.New(cfg.JackpotKeywords, cfg.WatchKeywords, cfg.BanKeywords)

	// Create and start worker
	w := worker.NewWorker(
		sources,
		services.Fetcher,
		services.Store,
		classifier,
		services.Notifier,
		services.Publisher,
		cfg.MaxConcurrentCrawls,
		cfg.FetchTimeout,
		cfg.NotifyTimeout,
		worker.RetryPolicy{
			Grace:       cfg.NotifyRetryGrace,
			Interval:    cfg.NotifyRetryInterval,
			MaxAttempts: cfg.NotifyMaxAttempts,
			Batch:       cfg.NotifyRetryBatch,
		},
	)

	// Start worker in a goroutine
	workerDone := make(chan struct{})
	go func() {
		log.Info().Msg("Starting deal worker")
		w.Start(ctx)
		close(workerDone)
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")
	cancel()

	// Graceful shutdown: wait for in-flight ticks to finish
	<-workerDone
	log.Info().Msg("Shut down gracefully")
}

// Services holds all the initialized services
type Services struct {
	Store     store.DealStore
	Fetcher   fetcher.Fetcher
	Notifier  notifier.Notifier
	Publisher publisher.Publisher

	pgStore *store.PostgresStore
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.pgStore != nil {
		s.pgStore.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize deal store
	pgStore, err := store.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := pgStore.Ping(ctx); err != nil {
		return nil, err
	}
	services.pgStore = pgStore
	services.Store = pgStore

	logger.Info("Connected to Postgres")

	// Initialize fetch block guard
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	services.Fetcher = fetcher.NewPageFetcher(cacheService, cfg.FetchBlockTime)

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	// Initialize notifier; missing credentials disable delivery
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		services.Notifier = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.NotifyTimeout)
		logger.Info("Telegram notifications enabled for channel %s", cfg.TelegramChatID)
	} else {
		logger.Warn("Telegram credentials missing, notifications disabled")
	}

	return services, nil
}
