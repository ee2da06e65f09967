package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/catalog"
	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/events"
	"example.com/extracurricular/internal/logging"
	"example.com/extracurricular/internal/registry"
	httptransport "example.com/extracurricular/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	seed, err := catalog.Load(cfg.SeedFile)
	if err != nil {
		logger.Fatal("failed to load activity catalog", zap.String("seed_file", cfg.SeedFile), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher domain.EventPublisher = events.NoopPublisher{}
	var dispatcher *events.Dispatcher
	if cfg.EventsEnabled() {
		producer := events.NewKafkaProducer(cfg.KafkaBrokers)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", zap.Error(err))
			}
		}()

		opts := []events.Option{
			events.WithPollInterval(cfg.EventsPollInterval),
			events.WithBatchSize(cfg.EventsBatchSize),
			events.WithQueueSize(cfg.EventsQueueSize),
			events.WithLogger(logger.Named("events")),
		}
		if cfg.SchemaRegistryURL != "" {
			opts = append(opts, events.WithSchemaRegistry(events.NewSchemaRegistryClient(cfg.SchemaRegistryURL, 0)))
		}
		dispatcher = events.NewDispatcher(producer, cfg.EventsTopic, opts...)
		publisher = dispatcher
		go dispatcher.Start(ctx)
		logger.Info("registration events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.EventsTopic))
	} else {
		logger.Info("KAFKA_BROKERS not set, registration events disabled")
	}

	policy := domain.CapacityUnbounded
	if cfg.EnforceCapacity {
		policy = domain.CapacityEnforced
	}

	service := domain.NewService(registry.NewMemory(seed), publisher,
		domain.WithCapacityPolicy(policy),
		domain.WithLogger(logger.Named("domain")),
	)
	if err := service.SyncRosterMetrics(ctx); err != nil {
		logger.Warn("failed to initialise roster metrics", zap.Error(err))
	}

	handler := api.NewHandler(service, logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.RequestLogger(httptransport.CORS(cfg.CORSAllowedOrigins, mux), logger.Named("http")),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("signup-service listening",
			zap.String("address", cfg.HTTPAddress),
			zap.Int("activities", len(seed)),
			zap.Stringer("capacity_policy", policy),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	// Stop the dispatcher only after in-flight requests have queued their events.
	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
