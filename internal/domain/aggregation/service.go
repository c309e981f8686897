// Package aggregation keeps the cached aggregation data (providers, provider
// accounts, accounts, transactions, merchants and transaction categories)
// consistent with the remote service.
package aggregation

import (
	"context"

	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// Remotes are the remote collections the service reconciles from.
type Remotes struct {
	Providers        reconcile.Source[models.Provider]
	ProviderAccounts reconcile.RemoteCollection[models.ProviderAccount]
	Accounts         reconcile.RemoteCollection[models.Account]
	Transactions     reconcile.RemoteCollection[models.Transaction]
	Merchants        reconcile.Source[models.Merchant]
	Categories       reconcile.Source[models.TransactionCategory]
}

// Service contains the refresh and mutation operations of the aggregation
// entity types.
type Service struct {
	providers        *reconcile.Collection[models.Provider]
	providerAccounts *reconcile.Collection[models.ProviderAccount]
	accounts         *reconcile.Collection[models.Account]
	transactions     *reconcile.Collection[models.Transaction]
	merchants        *reconcile.Collection[models.Merchant]
	categories       *reconcile.Collection[models.TransactionCategory]

	providerResolver *reconcile.Resolver
	merchantResolver *reconcile.Resolver
	categoryResolver *reconcile.Resolver

	remotes Remotes
	log     zerolog.Logger
}

// NewService wires one collection per entity type on engine.
func NewService(engine *reconcile.Engine, remotes Remotes) *Service {
	s := &Service{
		remotes: remotes,
		log:     engine.Logger.With().Str("service", "aggregation").Logger(),
	}
	stores := engine.Stores

	providers := reconcile.Bind(engine, cache.ProviderSchema, stores.Providers, remotes.Providers)
	providers.Narrow = &reconcile.NarrowWrite[models.Provider]{
		Applies: func(p models.Provider) bool { return p.Status.Limited() },
		Merge:   models.Provider.MergeListing,
	}
	s.providers = reconcile.NewCollection(providers)

	s.providerAccounts = reconcile.NewCollection(
		reconcile.Bind(engine, cache.ProviderAccountSchema, stores.ProviderAccounts, remotes.ProviderAccounts))
	s.accounts = reconcile.NewCollection(
		reconcile.Bind(engine, cache.AccountSchema, stores.Accounts, remotes.Accounts))
	s.transactions = reconcile.NewCollection(
		reconcile.Bind(engine, cache.TransactionSchema, stores.Transactions, remotes.Transactions))

	merchants := reconcile.Bind(engine, cache.MerchantSchema, stores.Merchants, remotes.Merchants)
	merchants.KeyPaged = true
	s.merchants = reconcile.NewCollection(merchants)

	s.categories = reconcile.NewCollection(
		reconcile.Bind(engine, cache.TransactionCategorySchema, stores.Categories, remotes.Categories))

	s.providerResolver = s.providers.Resolver(engine.Dispatcher)
	s.merchantResolver = s.merchants.Resolver(engine.Dispatcher)
	s.categoryResolver = s.categories.Resolver(engine.Dispatcher)

	s.providerAccounts.SetOnPage(s.resolveProviders)
	s.transactions.SetOnPage(s.resolveTransactionRefs)
	return s
}

func (s *Service) resolveProviders(ctx context.Context, page []models.ProviderAccount) {
	ids := make([]models.ID, 0, len(page))
	for _, pa := range page {
		ids = append(ids, pa.ProviderID)
	}
	s.resolve(ctx, s.providerResolver, ids)
}

func (s *Service) resolveTransactionRefs(ctx context.Context, page []models.Transaction) {
	s.resolve(ctx, s.merchantResolver, models.MerchantIDs(page))
	s.resolve(ctx, s.categoryResolver, models.CategoryIDs(page))
}

func (s *Service) resolve(ctx context.Context, r *reconcile.Resolver, ids []models.ID) {
	missing, err := r.ResolveMissing(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to resolve missing references")
		return
	}
	if len(missing) > 0 {
		s.log.Debug().Int("count", len(missing)).Msg("backfilling missing references")
	}
}
