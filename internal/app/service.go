package app

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/spimexpulse/config"
	"github.com/guttosm/spimexpulse/internal/bulletin"
	"github.com/guttosm/spimexpulse/internal/cache"
	"github.com/guttosm/spimexpulse/internal/ingestion"
	"github.com/guttosm/spimexpulse/internal/service"
	"github.com/guttosm/spimexpulse/internal/storage"
)

// Services groups the business components shared by the API and the CLI.
type Services struct {
	Repo        storage.TradingResultsRepository
	Results     service.TradingResultsService
	Coordinator *ingestion.Coordinator
}

// NewServices wires the storage, cache, fetcher, coordinator and read service.
//
// The store is always wrapped by the read cache; a nil rdb turns the cache into a pass-through.
func NewServices(cfg config.Config, db *sql.DB, rdb *redis.Client) *Services {
	loc := cfg.Ingestion.Location()

	repo := cache.NewCachingResultsRepository(rdb, cfg.Redis.TTL, storage.NewTradingResultsRepository(db), "")

	fetcher := bulletin.NewFetcher(bulletin.FetcherConfig{
		URLTemplate:   cfg.Bulletin.URLTemplate,
		Timeout:       cfg.Bulletin.Timeout,
		MaxParallel:   cfg.Bulletin.MaxParallel,
		MaxRetries:    cfg.Bulletin.MaxRetries,
		RetryInterval: cfg.Bulletin.RetryInterval,
	}, nil)

	coordinator := ingestion.NewCoordinator(repo, fetcher, ingestion.Config{
		Location:      loc,
		MaxWindowDays: cfg.Ingestion.MaxWindowDays,
		TempDir:       cfg.Bulletin.TempDir,
		Timeout:       cfg.Ingestion.Timeout,
	})

	return &Services{
		Repo:        repo,
		Results:     service.NewTradingResultsService(repo, loc),
		Coordinator: coordinator,
	}
}
