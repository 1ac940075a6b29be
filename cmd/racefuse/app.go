package main

import (
	"context"
	"fmt"

	"github.com/yourusername/racefuse/internal/backtest"
	"github.com/yourusername/racefuse/internal/cache"
	"github.com/yourusername/racefuse/internal/database"
	"github.com/yourusername/racefuse/internal/datasource"
	"github.com/yourusername/racefuse/internal/identity"
	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/reconcile"
	"github.com/yourusername/racefuse/internal/repository"
	"github.com/yourusername/racefuse/internal/service"
	"github.com/yourusername/racefuse/internal/valuation"
	"github.com/yourusername/racefuse/internal/weather"
)

// app holds the wired dependencies of one command run
type app struct {
	db        *database.DB
	repos     *repository.Repositories
	snapshots *cache.SnapshotCache
	sources   *datasource.Sources
	matcher   *matching.Matcher
	races     *service.RaceService
	analysis  *service.AnalysisService
}

// newApp connects storage (unless --no-store), builds the provider clients
// and the services on top of them
func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	if !noStore {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		if a.repos, err = repository.NewRepositories(db); err != nil {
			a.Close()
			return nil, err
		}

		if cfg.Redis.Enabled {
			snapshots, err := cache.NewSnapshotCache(ctx, cfg.Redis)
			if err != nil {
				// The record store still works without the cache
				appLog.WithError(err).Warn("Snapshot cache unavailable")
			} else {
				a.snapshots = snapshots
			}
		}
	}

	sources, err := datasource.NewFactory(cfg, appLog).Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build providers: %w", err)
	}
	a.sources = sources

	a.matcher = matching.NewMatcher(identity.NewNormalizer(cfg.Matching.TrackAliases))
	order := make([]models.Provider, 0, len(cfg.Providers.Precedence))
	for _, name := range cfg.Providers.Precedence {
		order = append(order, models.Provider(name))
	}
	reconciler := reconcile.NewReconciler(a.matcher, reconcile.NewPrecedence(models.Provider(cfg.Providers.Backbone), order), appLog)
	scorer := valuation.NewScorer(cfg.Scoring.ValueThreshold)

	opts := []service.Option{service.WithWorkers(cfg.App.Workers)}
	if a.repos != nil {
		opts = append(opts,
			service.WithEntrantRepository(a.repos.Entrant),
			service.WithUnresolvedRepository(a.repos.Unresolved),
		)
	}
	if a.snapshots != nil {
		opts = append(opts, service.WithSnapshotStore(a.snapshots))
	}
	a.races = service.NewRaceService(sources, a.matcher, reconciler, scorer, appLog, opts...)

	simCfg, err := backtest.FromConfig(&cfg.Staking, &cfg.Scoring)
	if err != nil {
		a.Close()
		return nil, err
	}
	simulator, err := backtest.NewSimulator(simCfg, appLog)
	if err != nil {
		a.Close()
		return nil, err
	}
	analyzer := weather.NewAnalyzer(weather.Config{
		MinSampleSize: cfg.Weather.MinSampleSize,
		SignificantR:  cfg.Weather.SignificantR,
		SignificantN:  cfg.Weather.SignificantN,
		Buckets:       cfg.Weather.Buckets,
	}, a.matcher.Tracks())

	// Leave the interfaces nil rather than holding typed nil pointers
	var entrants repository.EntrantRepository
	var weatherRepo repository.WeatherRepository
	if a.repos != nil {
		entrants = a.repos.Entrant
		weatherRepo = a.repos.Weather
	}
	a.analysis = service.NewAnalysisService(entrants, weatherRepo, sources.Weather, scorer, simulator, analyzer, appLog)

	return a, nil
}

// Close releases every connection the app opened
func (a *app) Close() {
	if a.sources != nil {
		if err := a.sources.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close providers")
		}
	}
	if a.snapshots != nil {
		_ = a.snapshots.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
