package aggregation

import (
	"context"
	"fmt"

	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// Merchant reads a cached merchant.
func (s *Service) Merchant(ctx context.Context, id models.ID) (models.Merchant, error) {
	m, ok, err := s.merchants.FetchOne(ctx, id)
	if err != nil {
		return m, err
	}
	if !ok {
		return m, fmt.Errorf("merchant %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// RefreshMerchants pages through the whole merchant directory. Each page
// evicts the cached merchants inside its key range that it did not return.
func (s *Service) RefreshMerchants(ctx context.Context) reconcile.Result {
	return s.merchants.RefreshDrained(ctx, reconcile.Query{}, reconcile.All[models.ID]())
}

// RefreshMerchantsPage reconciles the page after the after cursor.
func (s *Service) RefreshMerchantsPage(ctx context.Context, before, after *int64, size int) reconcile.Result {
	return s.merchants.RefreshWithPagination(ctx, before, after, size, reconcile.All[models.ID]())
}

// RefreshMerchantsByIDs refreshes ids in batches of batchSize, or the
// configured batch size when zero.
func (s *Service) RefreshMerchantsByIDs(ctx context.Context, ids []models.ID, batchSize int) reconcile.Result {
	return s.merchants.RefreshByIDs(ctx, ids, batchSize, false)
}

func (s *Service) RefreshMerchant(ctx context.Context, id models.ID) reconcile.Result {
	return s.merchants.RefreshOne(ctx, id)
}

// RefreshCachedMerchants re-fetches every merchant already in the cache.
func (s *Service) RefreshCachedMerchants(ctx context.Context) reconcile.Result {
	return s.merchants.RefreshCachedAll(ctx)
}
