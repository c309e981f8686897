package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/models"
	"finsync/internal/shared/config"
)

func TestOpenStores(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{"memory", "sqlite3"} {
		t.Run(driver, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{Driver: driver, Path: ":memory:"}}

			db, stores, err := OpenStores(ctx, cfg)
			require.NoError(t, err)
			if db != nil {
				defer db.Close()
			}

			require.NoError(t, stores.Accounts.Upsert(ctx, models.Account{ID: 1, ProviderAccountID: 2}))
			keys, err := stores.Accounts.AllKeys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []models.ID{1}, keys)
		})
	}
}

func TestNewDependencies(t *testing.T) {
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: "memory"},
		Remote: config.RemoteConfig{BaseURL: "http://127.0.0.1:1"},
		Sync:   config.SyncConfig{PageSize: 100, IDBatchSize: 20, CachedWindowSize: 200},
	}

	deps, err := NewDependencies(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.DB)
	assert.Equal(t, 100, deps.Engine.PageSize)
	assert.Equal(t, 20, deps.Engine.BatchSize)
	assert.Equal(t, 200, deps.Engine.WindowSize)
	assert.NotNil(t, deps.Aggregation)
	assert.NotNil(t, deps.Tags)
	assert.NoError(t, deps.Ping(context.Background()))
}
