// Package app wires configuration into the running components.
package app

import (
	"context"
	"fmt"

	"github.com/yourorg/quote-vault/internal/cache"
	"github.com/yourorg/quote-vault/internal/client"
	"github.com/yourorg/quote-vault/internal/config"
	"github.com/yourorg/quote-vault/internal/database"
	"github.com/yourorg/quote-vault/internal/events"
	"github.com/yourorg/quote-vault/internal/metrics"
	"github.com/yourorg/quote-vault/internal/quota"
	"github.com/yourorg/quote-vault/internal/repository"
	"github.com/yourorg/quote-vault/internal/service"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// App holds the long lived components built from a Config
type App struct {
	DB             *sqlx.DB
	Ledger         *quota.Ledger
	IngestService  *service.IngestService
	CatalogService *service.CatalogService

	logger  *zap.Logger
	closers []func() error
}

// New connects to every configured backing service and builds the services
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	// Connect to database
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	// Quota ledger
	backend, err := quota.OpenBackend(cfg.Quota.Backend, cfg.Quota.FilePath, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ledger = quota.NewLedger(backend, cfg.Quota.DailyLimit, quota.WithLogger(logger))
	if state, err := a.Ledger.Peek(ctx); err == nil {
		metrics.SetQuotaRemaining(state.Remaining)
	} else {
		logger.Warn("Failed to read quota state", zap.Error(err))
	}

	// Initialize clients
	avClient := client.NewAlphaVantageClient(client.Config{
		BaseURL:           cfg.AlphaVantage.BaseURL,
		Timeout:           cfg.AlphaVantage.Timeout,
		RequestsPerMinute: cfg.AlphaVantage.RequestsPerMinute,
	}, a.Ledger, logger)

	// Initialize repositories
	assetRepo := repository.NewAssetRepository(db, logger)
	searchRepo := repository.NewSearchRepository(db, logger)
	referenceRepo := repository.NewReferenceRepository(db, logger)

	historyCache, err := a.historyCache(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher := a.publisher(cfg.Kafka)

	// Initialize services
	a.IngestService = service.NewIngestService(
		avClient,
		a.Ledger,
		assetRepo,
		searchRepo,
		historyCache,
		publisher,
		client.Credentials{APIKey: cfg.AlphaVantage.APIKey},
		logger,
	)
	a.CatalogService = service.NewCatalogService(referenceRepo, logger)

	return a, nil
}

func (a *App) historyCache(ctx context.Context, cfg config.RedisConfig) (cache.HistoryCache, error) {
	if !cfg.Enabled {
		return cache.NopHistoryCache{}, nil
	}
	rdb, err := cache.Connect(ctx, cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	return cache.NewRedisHistoryCache(rdb, cfg.TTL, a.logger), nil
}

func (a *App) publisher(cfg config.KafkaConfig) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	producer := events.NewProducer(cfg.BrokerList(), cfg.ClientID, a.logger)
	a.closers = append(a.closers, producer.Close)
	a.logger.Info("Publishing ingestion events",
		zap.Strings("brokers", cfg.BrokerList()),
		zap.String("topic", cfg.Topic))
	return events.NewTopicPublisher(producer, cfg.Topic)
}

// Close releases everything New opened, newest first
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
