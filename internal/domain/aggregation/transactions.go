package aggregation

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// accountRefreshLimit bounds concurrent per-account transaction drains.
const accountRefreshLimit = 4

// Transactions reads the cached transactions of an account.
func (s *Service) Transactions(ctx context.Context, accountID models.ID) ([]models.Transaction, error) {
	return s.transactions.FetchAll(ctx, cache.Where(cache.ColAccountID, accountID))
}

// RefreshTransactionsByIDs refreshes the given transactions. IDs the remote
// does not return are reported in Result.Missing and left cached.
func (s *Service) RefreshTransactionsByIDs(ctx context.Context, ids []models.ID) reconcile.Result {
	return s.transactions.RefreshByIDs(ctx, ids, 0, false)
}

// RefreshTransactionsPage upserts one page of the transaction feed and
// returns the cursors of the neighbouring pages. Nothing is evicted.
func (s *Service) RefreshTransactionsPage(ctx context.Context, before, after *int64, size int) reconcile.Result {
	return s.transactions.RefreshWithPagination(ctx, before, after, size, reconcile.All[models.ID]())
}

// RefreshAccountTransactions pages through every transaction of an account
// and evicts the cached ones the remote no longer lists.
func (s *Service) RefreshAccountTransactions(ctx context.Context, accountID models.ID) reconcile.Result {
	q := reconcile.Query{}.WithFilter(cache.ColAccountID, strconv.FormatInt(accountID, 10))
	scope := reconcile.Filtered[models.ID](cache.Where(cache.ColAccountID, accountID))
	return s.transactions.RefreshDrained(ctx, q, scope)
}

// RefreshTransactionsForAccounts refreshes the transactions of several
// accounts concurrently. The first failure cancels the remaining drains.
func (s *Service) RefreshTransactionsForAccounts(ctx context.Context, accountIDs []models.ID) reconcile.Result {
	accountIDs = models.UniqueIDs(accountIDs)
	if len(accountIDs) == 0 {
		return reconcile.Failed(reconcile.ValidationError("transactions.refresh_accounts", ErrNoAccounts))
	}

	results := make([]reconcile.Result, len(accountIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accountRefreshLimit)
	for i, id := range accountIDs {
		g.Go(func() error {
			results[i] = s.RefreshAccountTransactions(gctx, id)
			return results[i].Err
		})
	}
	if err := g.Wait(); err != nil {
		return reconcile.Failed(err)
	}
	return reconcile.Combine(results...)
}

// UpdateTransaction submits patch and caches the updated transaction. When
// the remote answers without a body the patch is applied to the cached row.
func (s *Service) UpdateTransaction(ctx context.Context, id models.ID, patch models.TransactionPatch) reconcile.Result {
	res := s.transactions.Mutate(ctx, func(ctx context.Context) (*models.Transaction, error) {
		return s.remotes.Transactions.Update(ctx, id, patch)
	})
	if res.Status != reconcile.StatusNoData {
		return res
	}

	current, ok, err := s.transactions.FetchOne(ctx, id)
	if err != nil {
		return reconcile.Failed(err)
	}
	if !ok {
		return res
	}
	if err := s.transactions.Save(ctx, patch.Apply(current)); err != nil {
		return reconcile.Failed(err)
	}
	return reconcile.Saved(id)
}

// RefreshCategories replaces the cached transaction categories.
func (s *Service) RefreshCategories(ctx context.Context) reconcile.Result {
	return s.categories.RefreshAll(ctx)
}

// Categories reads the cached transaction categories.
func (s *Service) Categories(ctx context.Context) ([]models.TransactionCategory, error) {
	return s.categories.FetchAll(ctx, cache.Predicate{})
}
