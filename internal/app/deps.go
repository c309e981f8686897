// Package app builds the dependency graph shared by the sync daemon and the
// admin CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"finsync/internal/domain/aggregation"
	"finsync/internal/domain/cache"
	"finsync/internal/domain/card"
	"finsync/internal/domain/goal"
	"finsync/internal/domain/reconcile"
	"finsync/internal/domain/tag"
	"finsync/internal/infrastructure/memstore"
	"finsync/internal/infrastructure/openfinance"
	"finsync/internal/infrastructure/sqlstore"
	"finsync/internal/shared/config"
)

// Dependencies holds the initialized application components.
type Dependencies struct {
	DB     *sqlstore.DB
	Stores *cache.Stores
	Engine *reconcile.Engine

	Aggregation *aggregation.Service
	Goals       *goal.Service
	Cards       *card.Service
	Tags        *tag.Service
}

// OpenStores opens the cache selected by cfg.Store. The returned DB is nil
// for the in-memory cache.
func OpenStores(ctx context.Context, cfg *config.Config) (*sqlstore.DB, *cache.Stores, error) {
	var (
		dialect sqlstore.Dialect
		dsn     string
	)
	switch cfg.Store.Driver {
	case "memory":
		return nil, memstore.NewStores(), nil
	case "postgres":
		dialect, dsn = sqlstore.DialectPostgres, cfg.Database.ConnectionString()
	default:
		dialect, dsn = sqlstore.DialectSQLite, cfg.Store.Path
	}

	db, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s cache: %w", dialect, err)
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate cache: %w", err)
	}
	return db, sqlstore.NewStores(db), nil
}

// NewDependencies opens the cache and wires every orchestration service to
// the remote API. Backfills go through dispatcher.
func NewDependencies(ctx context.Context, cfg *config.Config, dispatcher reconcile.Dispatcher, log zerolog.Logger) (*Dependencies, error) {
	db, stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Store.Driver).Msg("cache opened")

	engine := reconcile.NewEngine(stores, dispatcher, log)
	engine.PageSize = cfg.Sync.PageSize
	engine.BatchSize = cfg.Sync.IDBatchSize
	engine.WindowSize = cfg.Sync.CachedWindowSize

	client := openfinance.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, openfinance.StaticToken(cfg.Remote.Token))
	remote := openfinance.NewEndpoints(client)

	return &Dependencies{
		DB:     db,
		Stores: stores,
		Engine: engine,
		Aggregation: aggregation.NewService(engine, aggregation.Remotes{
			Providers:        remote.Providers,
			ProviderAccounts: remote.ProviderAccounts,
			Accounts:         remote.Accounts,
			Transactions:     remote.Transactions,
			Merchants:        remote.Merchants,
			Categories:       remote.Categories,
		}),
		Goals: goal.NewService(engine, goal.Remotes{
			Goals:       remote.Goals,
			GoalPeriods: remote.GoalPeriods,
		}),
		Cards: card.NewService(engine, remote.Cards),
		Tags:  tag.NewService(engine, remote.UserTags),
	}, nil
}

// Ping checks the cache database. The in-memory cache is always reachable.
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.PingContext(ctx)
}

// Close releases the cache connection.
func (d *Dependencies) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
