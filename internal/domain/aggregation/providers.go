package aggregation

import (
	"context"
	"fmt"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// Provider reads a cached provider.
func (s *Service) Provider(ctx context.Context, id models.ID) (models.Provider, error) {
	p, ok, err := s.providers.FetchOne(ctx, id)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("provider %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// Providers reads the cached providers, optionally restricted to statuses.
func (s *Service) Providers(ctx context.Context, statuses ...models.ProviderStatus) ([]models.Provider, error) {
	var p cache.Predicate
	if len(statuses) > 0 {
		values := make([]any, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		p = cache.Where(cache.ColStatus, values...)
	}
	return s.providers.FetchAll(ctx, p)
}

// RefreshProviders replaces the cached provider list. Providers that dropped
// out of the list are evicted together with everything they own.
func (s *Service) RefreshProviders(ctx context.Context) reconcile.Result {
	return s.providers.RefreshAll(ctx)
}

// RefreshProvider fetches the full detail of one provider.
func (s *Service) RefreshProvider(ctx context.Context, id models.ID) reconcile.Result {
	return s.providers.RefreshOne(ctx, id)
}

func (s *Service) RefreshProvidersByIDs(ctx context.Context, ids []models.ID) reconcile.Result {
	return s.providers.RefreshByIDs(ctx, ids, 0, false)
}

// ProviderAccounts reads the cached provider accounts, optionally those of
// one provider.
func (s *Service) ProviderAccounts(ctx context.Context, providerID models.ID) ([]models.ProviderAccount, error) {
	var p cache.Predicate
	if providerID != 0 {
		p = cache.Where(cache.ColProviderID, providerID)
	}
	return s.providerAccounts.FetchAll(ctx, p)
}

// RefreshProviderAccounts replaces the cached provider accounts and backfills
// the providers they reference.
func (s *Service) RefreshProviderAccounts(ctx context.Context) reconcile.Result {
	return s.providerAccounts.RefreshAll(ctx)
}

func (s *Service) RefreshProviderAccount(ctx context.Context, id models.ID) reconcile.Result {
	return s.providerAccounts.RefreshOne(ctx, id)
}

// SyncProviderAccounts refreshes ids and treats every requested ID the remote
// no longer returns as deleted.
func (s *Service) SyncProviderAccounts(ctx context.Context, ids []models.ID) reconcile.Result {
	return s.providerAccounts.RefreshByIDs(ctx, ids, 0, true)
}

// CreateProviderAccount links a new login at a provider.
func (s *Service) CreateProviderAccount(ctx context.Context, req models.ProviderAccountRequest) reconcile.Result {
	if req.ProviderID == 0 {
		return reconcile.Failed(reconcile.ValidationError("provider_accounts.create",
			fmt.Errorf("%w: provider ID is required", ErrInvalidPatch)))
	}
	return s.providerAccounts.Mutate(ctx, func(ctx context.Context) (*models.ProviderAccount, error) {
		return s.remotes.ProviderAccounts.Create(ctx, req)
	})
}

// UpdateProviderAccount submits new credentials for an existing login.
func (s *Service) UpdateProviderAccount(ctx context.Context, id models.ID, req models.ProviderAccountRequest) reconcile.Result {
	return s.providerAccounts.Mutate(ctx, func(ctx context.Context) (*models.ProviderAccount, error) {
		return s.remotes.ProviderAccounts.Update(ctx, id, req)
	})
}

// DeleteProviderAccount unlinks a login remotely and removes it from the
// cache with its accounts, goals, goal periods and cards.
func (s *Service) DeleteProviderAccount(ctx context.Context, id models.ID) reconcile.Result {
	return s.providerAccounts.Remove(ctx, id, s.remotes.ProviderAccounts.Delete)
}
