package reconcile

import (
	"context"
	"slices"
	"sync"

	"finsync/internal/models"
)

// MockSource is a hand-written Source whose behaviour is set per test.
type MockSource[T any] struct {
	FetchAllFunc   func(ctx context.Context, q Query) ([]T, error)
	FetchPageFunc  func(ctx context.Context, q Query) (Page[T], error)
	FetchByIDsFunc func(ctx context.Context, ids []models.ID, q Query) (Page[T], error)
	FetchOneFunc   func(ctx context.Context, id models.ID) (*T, error)

	mu         sync.Mutex
	pageCalls  []Query
	batchCalls [][]models.ID
	oneCalls   []models.ID
}

func (m *MockSource[T]) FetchAll(ctx context.Context, q Query) ([]T, error) {
	return m.FetchAllFunc(ctx, q)
}

func (m *MockSource[T]) FetchPage(ctx context.Context, q Query) (Page[T], error) {
	m.mu.Lock()
	m.pageCalls = append(m.pageCalls, q)
	m.mu.Unlock()
	return m.FetchPageFunc(ctx, q)
}

func (m *MockSource[T]) FetchByIDs(ctx context.Context, ids []models.ID, q Query) (Page[T], error) {
	m.mu.Lock()
	m.batchCalls = append(m.batchCalls, slices.Clone(ids))
	m.mu.Unlock()
	return m.FetchByIDsFunc(ctx, ids, q)
}

func (m *MockSource[T]) FetchOne(ctx context.Context, id models.ID) (*T, error) {
	m.mu.Lock()
	m.oneCalls = append(m.oneCalls, id)
	m.mu.Unlock()
	return m.FetchOneFunc(ctx, id)
}

func (m *MockSource[T]) PageCalls() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pageCalls)
}

func (m *MockSource[T]) BatchCalls() [][]models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.batchCalls)
}

// remoteMerchants is a fake remote merchant collection paginated by ID.
func remoteMerchants(n int) []models.Merchant {
	out := make([]models.Merchant, n)
	for i := range out {
		out[i] = models.Merchant{ID: models.ID(i + 1), Name: "merchant", MerchantType: "RETAILER"}
	}
	return out
}

// pagedMerchantSource serves merchants in ascending ID order. The after
// cursor is the ID of the last item of a page and the before cursor is the
// cursor the page was requested with.
func pagedMerchantSource(remote []models.Merchant) *MockSource[models.Merchant] {
	src := &MockSource[models.Merchant]{}
	src.FetchAllFunc = func(ctx context.Context, q Query) ([]models.Merchant, error) {
		return slices.Clone(remote), nil
	}
	src.FetchPageFunc = func(ctx context.Context, q Query) (Page[models.Merchant], error) {
		start := 0
		if q.After != nil {
			start = slices.IndexFunc(remote, func(m models.Merchant) bool { return m.ID > *q.After })
			if start < 0 {
				start = len(remote)
			}
		}
		end := min(start+q.Size, len(remote))
		page := Page[models.Merchant]{Items: slices.Clone(remote[start:end]), Before: q.After}
		if end < len(remote) {
			page.After = Int64(remote[end-1].ID)
		}
		return page, nil
	}
	src.FetchByIDsFunc = func(ctx context.Context, ids []models.ID, q Query) (Page[models.Merchant], error) {
		items := []models.Merchant{}
		for _, m := range remote {
			if slices.Contains(ids, m.ID) {
				items = append(items, m)
			}
		}
		return Page[models.Merchant]{Items: items}, nil
	}
	src.FetchOneFunc = func(ctx context.Context, id models.ID) (*models.Merchant, error) {
		for _, m := range remote {
			if m.ID == id {
				return &m, nil
			}
		}
		return nil, nil
	}
	return src
}
