package aggregation

import (
	"context"
	"fmt"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// Account reads a cached account.
func (s *Service) Account(ctx context.Context, id models.ID) (models.Account, error) {
	a, ok, err := s.accounts.FetchOne(ctx, id)
	if err != nil {
		return a, err
	}
	if !ok {
		return a, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// Accounts reads the cached accounts, optionally those of one provider
// account.
func (s *Service) Accounts(ctx context.Context, providerAccountID models.ID) ([]models.Account, error) {
	var p cache.Predicate
	if providerAccountID != 0 {
		p = cache.Where(cache.ColProviderAccountID, providerAccountID)
	}
	return s.accounts.FetchAll(ctx, p)
}

// RefreshAccounts replaces the cached accounts. Accounts no longer returned
// are evicted with their goals and cards.
func (s *Service) RefreshAccounts(ctx context.Context) reconcile.Result {
	return s.accounts.RefreshAll(ctx)
}

func (s *Service) RefreshAccount(ctx context.Context, id models.ID) reconcile.Result {
	return s.accounts.RefreshOne(ctx, id)
}

// UpdateAccount applies patch to the cached account immediately and then
// submits it. A patch that fails validation is rejected before the remote
// call, and the local change is kept.
func (s *Service) UpdateAccount(ctx context.Context, id models.ID, patch models.AccountPatch) reconcile.Result {
	const op = "accounts.update"

	current, ok, err := s.accounts.FetchOne(ctx, id)
	if err != nil {
		return reconcile.Failed(fmt.Errorf("failed to read account %d: %w", id, err))
	}
	if ok {
		if err := s.accounts.Save(ctx, patch.Apply(current)); err != nil {
			return reconcile.Failed(fmt.Errorf("failed to apply patch to account %d: %w", id, err))
		}
	}

	if err := patch.Validate(); err != nil {
		return reconcile.Failed(reconcile.ValidationError(op, fmt.Errorf("%w: %w", ErrInvalidPatch, err)))
	}

	return s.accounts.Mutate(ctx, func(ctx context.Context) (*models.Account, error) {
		return s.remotes.Accounts.Update(ctx, id, patch)
	})
}
