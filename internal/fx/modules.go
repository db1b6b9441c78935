package fx

import (
	"database/sql"
	"fmt"

	"match-collector/internal/api"
	"match-collector/internal/collector"
	"match-collector/internal/config"
	"match-collector/internal/database"
	"match-collector/internal/filestore"
	"match-collector/internal/logger"
	"match-collector/internal/pool"
	"match-collector/internal/repository"
	"match-collector/internal/request"
	"match-collector/internal/scheduler"
	"match-collector/internal/server"
	"match-collector/internal/tier"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideSeeds(cfg *config.Config, logger zerolog.Logger) (*config.Seeds, error) {
	seeds, err := config.LoadSeeds(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("file", cfg.SeedFile).
		Int("players", seeds.PlayerCount()).
		Msg("seeds loaded")
	return seeds, nil
}

func ProvidePool(seeds *config.Seeds) (*pool.Pool, error) {
	p := pool.New()
	if err := p.Seed(seeds.Players, seeds.Matches); err != nil {
		return nil, fmt.Errorf("failed to seed work pool: %w", err)
	}
	return p, nil
}

func ProvideScheduler(cfg *config.Config, p *pool.Pool, counters *tier.Counters) *scheduler.Scheduler {
	return scheduler.New(p, counters, request.HistoryOptions{
		Filter: request.QueueFilter{Queues: cfg.RankedQueues},
		Cutoff: cfg.PatchCutoff,
		Modes:  cfg.GameModes,
	})
}

func ProvideAPI(client *api.RiotClient) request.API {
	return client
}

// ProvideStore picks the document backend. The database is opened either way
// since runs are always recorded there.
func ProvideStore(cfg *config.Config, sqlDB *sql.DB, logger zerolog.Logger) (collector.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreFile:
		return filestore.New(cfg.DataDir, logger.With().Str("component", "filestore").Logger())
	default:
		return repository.NewDocumentRepository(sqlDB, logger), nil
	}
}

func ProvideOptions(cfg *config.Config) (collector.Options, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return collector.Options{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	return collector.Options{
		RunID:                runID,
		MaxTransientRetries:  cfg.TransientMaxRetries,
		ContinueOnExhaustion: cfg.ContinueOnExhaustion,
		MaxMatches:           cfg.MaxMatches,
	}, nil
}

func ProvideStatusServer(c *collector.Collector, client *api.RiotClient, logger zerolog.Logger) *server.StatusServer {
	return server.NewStatusServer(c, client, logger)
}

var Module = fx.Options(
	config.Module,
	logger.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewRunRepository),
	fx.Provide(ProvideStore),
	// api client
	fx.Provide(api.NewRiotClient),
	fx.Provide(ProvideAPI),
	// work
	fx.Provide(ProvideSeeds),
	fx.Provide(ProvidePool),
	fx.Provide(tier.NewCounters),
	fx.Provide(ProvideScheduler),
	fx.Provide(ProvideOptions),
	fx.Provide(collector.New),
	// server
	fx.Provide(ProvideStatusServer),
)
