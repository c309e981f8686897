package reconcile

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/domain/cache"
	"finsync/internal/infrastructure/memstore"
	"finsync/internal/models"
)

func merchantCollection(s *cache.Stores, src Source[models.Merchant], keyPaged bool) *Collection[models.Merchant] {
	return NewCollection(CollectionConfig[models.Merchant]{
		Schema:    cache.MerchantSchema,
		Store:     s.Merchants,
		Source:    src,
		Tracker:   NewTracker(),
		PageSize:  500,
		BatchSize: 50,
		KeyPaged:  keyPaged,
		Logger:    zerolog.Nop(),
	})
}

func TestDrain_FollowsCursorUntilExhausted(t *testing.T) {
	for _, keyPaged := range []bool{false, true} {
		name := "sweep"
		if keyPaged {
			name = "key ranges"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.NewStores()
			// a stale row in the middle and one past the end of the remote collection
			require.NoError(t, s.Merchants.UpsertMany(ctx, []models.Merchant{{ID: 250}, {ID: 9999}}))
			remote := remoteMerchants(664)
			remote = append(remote[:249], remote[250:]...)
			src := pagedMerchantSource(remote)

			res := merchantCollection(s, src, keyPaged).RefreshDrained(ctx, Query{}, All[models.ID]())
			require.NoError(t, res.Err)

			assert.Equal(t, StatusSuccess, res.Status)
			assert.Len(t, src.PageCalls(), 2)
			assert.Equal(t, 663, res.Upserted)
			assert.Equal(t, 2, res.Evicted)
			assert.Len(t, keysOf(t, s.Merchants), 663)

			_, ok, err := s.Merchants.Get(ctx, 250)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRefreshWithPagination_CursorChaining(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	src := pagedMerchantSource(remoteMerchants(664))
	coll := merchantCollection(s, src, true)

	first := coll.RefreshWithPagination(ctx, nil, nil, 500, All[models.ID]())
	require.NoError(t, first.Err)
	require.NotNil(t, first.Cursors)
	assert.Nil(t, first.Cursors.Before)
	require.NotNil(t, first.Cursors.After)
	assert.Equal(t, int64(500), *first.Cursors.After)

	second := coll.RefreshWithPagination(ctx, nil, first.Cursors.After, 500, All[models.ID]())
	require.NoError(t, second.Err)
	require.NotNil(t, second.Cursors)
	require.NotNil(t, second.Cursors.Before)
	assert.Equal(t, int64(500), *second.Cursors.Before)
	assert.Nil(t, second.Cursors.After)

	assert.Len(t, src.PageCalls(), 2)
	assert.Len(t, keysOf(t, s.Merchants), 664)
}

func TestDrain_FailureKeepsReconciledPages(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	require.NoError(t, s.Merchants.Upsert(ctx, models.Merchant{ID: 9999}))

	remoteErr := &Error{Kind: KindRemoteRejected, Op: "merchants.page", Status: 503}
	src := pagedMerchantSource(remoteMerchants(664))
	inner := src.FetchPageFunc
	src.FetchPageFunc = func(ctx context.Context, q Query) (Page[models.Merchant], error) {
		if q.After != nil {
			return Page[models.Merchant]{}, remoteErr
		}
		return inner(ctx, q)
	}

	res := merchantCollection(s, src, false).RefreshDrained(ctx, Query{}, All[models.ID]())

	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, remoteErr)
	assert.Equal(t, KindRemoteRejected, KindOf(res.Err))
	// first page stays, and nothing was swept
	assert.Len(t, keysOf(t, s.Merchants), 501)
}

func TestDrain_NoData(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	require.NoError(t, s.Merchants.Upsert(ctx, models.Merchant{ID: 1}))
	src := &MockSource[models.Merchant]{
		FetchPageFunc: func(ctx context.Context, q Query) (Page[models.Merchant], error) {
			return Page[models.Merchant]{}, nil
		},
	}

	res := merchantCollection(s, src, false).RefreshDrained(ctx, Query{}, All[models.ID]())

	assert.Equal(t, StatusNoData, res.Status)
	assert.Equal(t, []models.ID{1}, keysOf(t, s.Merchants))
}

func TestDrain_StuckCursorIsAnError(t *testing.T) {
	src := &MockSource[models.Merchant]{
		FetchPageFunc: func(ctx context.Context, q Query) (Page[models.Merchant], error) {
			return Page[models.Merchant]{Items: []models.Merchant{{ID: 1}}, After: Int64(1)}, nil
		},
	}

	res := merchantCollection(memstore.NewStores(), src, false).RefreshDrained(context.Background(), Query{}, All[models.ID]())

	assert.Equal(t, StatusError, res.Status)
	assert.Len(t, src.PageCalls(), 2)
}

func TestByIDs_ChunksInInputOrder(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	src := pagedMerchantSource(remoteMerchants(100))

	ids := make([]models.ID, 0, 60)
	for id := models.ID(60); id >= 1; id-- {
		ids = append(ids, id)
	}

	res := merchantCollection(s, src, false).RefreshByIDs(ctx, ids, 50, false)
	require.NoError(t, res.Err)

	calls := src.BatchCalls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 50)
	assert.Len(t, calls[1], 10)
	assert.Equal(t, models.ID(60), calls[0][0])
	assert.Equal(t, models.ID(1), calls[1][9])
	assert.Equal(t, 60, res.Upserted)
	assert.Len(t, keysOf(t, s.Merchants), 60)
}

func TestByIDs_PaginatesWithinChunk(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	src := &MockSource[models.Merchant]{
		FetchByIDsFunc: func(ctx context.Context, ids []models.ID, q Query) (Page[models.Merchant], error) {
			if q.After == nil {
				return Page[models.Merchant]{Items: []models.Merchant{{ID: ids[0]}}, After: Int64(ids[0])}, nil
			}
			items := []models.Merchant{}
			for _, id := range ids[1:] {
				items = append(items, models.Merchant{ID: id})
			}
			return Page[models.Merchant]{Items: items}, nil
		},
	}

	res := merchantCollection(s, src, false).RefreshByIDs(ctx, []models.ID{1, 2, 3, 4}, 2, false)
	require.NoError(t, res.Err)

	assert.Equal(t, [][]models.ID{{1, 2}, {1, 2}, {3, 4}, {3, 4}}, src.BatchCalls())
	assert.Equal(t, []models.ID{1, 2, 3, 4}, keysOf(t, s.Merchants))
}

func TestByIDs_ReportsMissing(t *testing.T) {
	s := memstore.NewStores()
	src := pagedMerchantSource(remoteMerchants(3))

	res := merchantCollection(s, src, false).RefreshByIDs(context.Background(), []models.ID{2, 3, 4}, 0, false)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []models.ID{4}, res.Missing)
}

func TestByIDs_AbortsOnChunkFailure(t *testing.T) {
	s := memstore.NewStores()
	boom := errors.New("connection reset")
	src := pagedMerchantSource(remoteMerchants(10))
	inner := src.FetchByIDsFunc
	src.FetchByIDsFunc = func(ctx context.Context, ids []models.ID, q Query) (Page[models.Merchant], error) {
		if ids[0] > 5 {
			return Page[models.Merchant]{}, boom
		}
		return inner(ctx, ids, q)
	}

	res := merchantCollection(s, src, false).RefreshByIDs(context.Background(), []models.ID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5, false)

	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, []models.ID{1, 2, 3, 4, 5}, keysOf(t, s.Merchants))
}

// merchantsExcept returns merchants from..to in ascending order without skip.
func merchantsExcept(from, to models.ID, skip ...models.ID) []models.Merchant {
	var out []models.Merchant
	for id := from; id <= to; id++ {
		if !slices.Contains(skip, id) {
			out = append(out, models.Merchant{ID: id})
		}
	}
	return out
}

func TestRefreshWithPagination_EvictsOnlyWithinPageRange(t *testing.T) {
	tests := []struct {
		name        string
		before      *int64
		after       *int64
		page        Page[models.Merchant]
		wantEvicted []models.ID
	}{
		{
			name:        "backward page with cursors",
			before:      Int64(16),
			page:        Page[models.Merchant]{Items: merchantsExcept(11, 15, 13), Before: Int64(10), After: Int64(15)},
			wantEvicted: []models.ID{13},
		},
		{
			name:        "backward page without after cursor",
			before:      Int64(16),
			page:        Page[models.Merchant]{Items: merchantsExcept(11, 15, 13), Before: Int64(10)},
			wantEvicted: []models.ID{13},
		},
		{
			name:        "forward page",
			after:       Int64(5),
			page:        Page[models.Merchant]{Items: merchantsExcept(6, 10, 8), Before: Int64(5), After: Int64(10)},
			wantEvicted: []models.ID{8},
		},
		{
			name:        "forward last page without after cursor",
			after:       Int64(15),
			page:        Page[models.Merchant]{Items: merchantsExcept(16, 17), Before: Int64(15)},
			wantEvicted: []models.ID{18, 19, 20},
		},
		{
			name:        "first page without after cursor is the whole collection",
			page:        Page[models.Merchant]{Items: merchantsExcept(1, 18, 4)},
			wantEvicted: []models.ID{4, 19, 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.NewStores()
			require.NoError(t, s.Merchants.UpsertMany(ctx, merchantsExcept(1, 20)))
			src := &MockSource[models.Merchant]{
				FetchPageFunc: func(ctx context.Context, q Query) (Page[models.Merchant], error) {
					return tt.page, nil
				},
			}

			res := merchantCollection(s, src, true).RefreshWithPagination(ctx, tt.before, tt.after, 5, All[models.ID]())
			require.NoError(t, res.Err)

			assert.Equal(t, StatusSuccess, res.Status)
			assert.Equal(t, len(tt.wantEvicted), res.Evicted)
			want := merchantsExcept(1, 20, tt.wantEvicted...)
			wantKeys := make([]models.ID, len(want))
			for i, m := range want {
				wantKeys[i] = m.ID
			}
			assert.Equal(t, wantKeys, keysOf(t, s.Merchants))
		})
	}
}

func TestDrain_NoDataMidDrainKeepsUnfetchedRows(t *testing.T) {
	for _, keyPaged := range []bool{false, true} {
		name := "sweep"
		if keyPaged {
			name = "key ranges"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.NewStores()
			require.NoError(t, s.Merchants.UpsertMany(ctx, merchantsExcept(1, 10)))
			src := &MockSource[models.Merchant]{
				FetchPageFunc: func(ctx context.Context, q Query) (Page[models.Merchant], error) {
					if q.After == nil {
						return Page[models.Merchant]{Items: merchantsExcept(1, 5), After: Int64(5)}, nil
					}
					return Page[models.Merchant]{}, nil
				},
			}

			res := merchantCollection(s, src, keyPaged).RefreshDrained(ctx, Query{}, All[models.ID]())
			require.NoError(t, res.Err)

			assert.Equal(t, StatusSuccess, res.Status)
			assert.Len(t, src.PageCalls(), 2)
			assert.Equal(t, 5, res.Upserted)
			assert.Zero(t, res.Evicted)
			assert.Len(t, keysOf(t, s.Merchants), 10)
		})
	}
}
