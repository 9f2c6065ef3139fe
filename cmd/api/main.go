package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	appevents "serendipity-backend/application/events"
	appservices "serendipity-backend/application/services"
	domainservices "serendipity-backend/domain/services"
	"serendipity-backend/infrastructure/config"
	ddb "serendipity-backend/infrastructure/persistence/dynamodb"
	"serendipity-backend/infrastructure/persistence/memory"
	"serendipity-backend/infrastructure/realtime"
	"serendipity-backend/interfaces/http/rest"
	"serendipity-backend/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	repos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	bus := appevents.NewBus(logger)

	service := appservices.NewSocialGraphService(
		repos,
		domainservices.NewInferenceEngine(nil, nil),
		bus,
		metrics,
		logger,
	)
	if err := service.Initialize(ctx); err != nil {
		logger.Warn("Graph hydration incomplete, continuing with partial state", zap.Error(err))
	}

	if cfg.RealtimeEnabled {
		listener := realtime.NewListener(cfg.RealtimeURL, service, logger)
		go listener.Run(ctx)
	}

	router := rest.NewRouter(service, registry, cfg.AllowedOrigins, cfg.RequestTimeout, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	_ = logger.Sync()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	zapCfg := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *zap.Logger) (appservices.Repositories, error) {
	switch cfg.StorageBackend {
	case "dynamodb":
		db, err := ddb.NewDB(ctx, cfg.AWSRegion, cfg.TableName, cfg.IndexName, logger)
		if err != nil {
			return appservices.Repositories{}, err
		}
		return appservices.Repositories{
			Users:       ddb.NewUserRepository(db),
			Events:      ddb.NewEventRepository(db),
			Connections: ddb.NewConnectionRepository(db),
			Stories:     ddb.NewStoryRepository(db),
		}, nil
	default:
		store := memory.NewStore()
		users, events, connections, stories := memory.NewRepositories(store)
		return appservices.Repositories{
			Users:       users,
			Events:      events,
			Connections: connections,
			Stories:     stories,
		}, nil
	}
}
