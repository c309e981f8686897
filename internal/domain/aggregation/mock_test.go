package aggregation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/infrastructure/memstore"
	"finsync/internal/models"
)

// MockRemote is a hand-written RemoteCollection. Unset funcs answer with no
// data.
type MockRemote[T any] struct {
	FetchAllFunc   func(ctx context.Context, q reconcile.Query) ([]T, error)
	FetchPageFunc  func(ctx context.Context, q reconcile.Query) (reconcile.Page[T], error)
	FetchByIDsFunc func(ctx context.Context, ids []models.ID, q reconcile.Query) (reconcile.Page[T], error)
	FetchOneFunc   func(ctx context.Context, id models.ID) (*T, error)
	CreateFunc     func(ctx context.Context, payload any) (*T, error)
	UpdateFunc     func(ctx context.Context, id models.ID, payload any) (*T, error)
	DeleteFunc     func(ctx context.Context, id models.ID) error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockRemote[T]) called(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how often the named method was invoked.
func (m *MockRemote[T]) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockRemote[T]) FetchAll(ctx context.Context, q reconcile.Query) ([]T, error) {
	m.called("FetchAll")
	if m.FetchAllFunc == nil {
		return nil, nil
	}
	return m.FetchAllFunc(ctx, q)
}

func (m *MockRemote[T]) FetchPage(ctx context.Context, q reconcile.Query) (reconcile.Page[T], error) {
	m.called("FetchPage")
	if m.FetchPageFunc == nil {
		return reconcile.Page[T]{}, nil
	}
	return m.FetchPageFunc(ctx, q)
}

func (m *MockRemote[T]) FetchByIDs(ctx context.Context, ids []models.ID, q reconcile.Query) (reconcile.Page[T], error) {
	m.called("FetchByIDs")
	if m.FetchByIDsFunc == nil {
		return reconcile.Page[T]{}, nil
	}
	return m.FetchByIDsFunc(ctx, ids, q)
}

func (m *MockRemote[T]) FetchOne(ctx context.Context, id models.ID) (*T, error) {
	m.called("FetchOne")
	if m.FetchOneFunc == nil {
		return nil, nil
	}
	return m.FetchOneFunc(ctx, id)
}

func (m *MockRemote[T]) Create(ctx context.Context, payload any) (*T, error) {
	m.called("Create")
	if m.CreateFunc == nil {
		return nil, nil
	}
	return m.CreateFunc(ctx, payload)
}

func (m *MockRemote[T]) Update(ctx context.Context, id models.ID, payload any) (*T, error) {
	m.called("Update")
	if m.UpdateFunc == nil {
		return nil, nil
	}
	return m.UpdateFunc(ctx, id, payload)
}

func (m *MockRemote[T]) Delete(ctx context.Context, id models.ID) error {
	m.called("Delete")
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}

// byID serves FetchByIDs from a fixed remote collection in one page.
func byID[T any](remote []T, key func(T) models.ID) func(ctx context.Context, ids []models.ID, q reconcile.Query) (reconcile.Page[T], error) {
	return func(ctx context.Context, ids []models.ID, q reconcile.Query) (reconcile.Page[T], error) {
		wanted := cache.KeySet(ids)
		items := []T{}
		for _, item := range remote {
			if _, ok := wanted[key(item)]; ok {
				items = append(items, item)
			}
		}
		return reconcile.Page[T]{Items: items}, nil
	}
}

type fixture struct {
	stores     *cache.Stores
	dispatcher *reconcile.AsyncDispatcher

	providers        *MockRemote[models.Provider]
	providerAccounts *MockRemote[models.ProviderAccount]
	accounts         *MockRemote[models.Account]
	transactions     *MockRemote[models.Transaction]
	merchants        *MockRemote[models.Merchant]
	categories       *MockRemote[models.TransactionCategory]
}

func newFixture() *fixture {
	return &fixture{
		stores:           memstore.NewStores(),
		dispatcher:       reconcile.NewAsyncDispatcher(),
		providers:        &MockRemote[models.Provider]{},
		providerAccounts: &MockRemote[models.ProviderAccount]{},
		accounts:         &MockRemote[models.Account]{},
		transactions:     &MockRemote[models.Transaction]{},
		merchants:        &MockRemote[models.Merchant]{},
		categories:       &MockRemote[models.TransactionCategory]{},
	}
}

func (f *fixture) service() *Service {
	engine := reconcile.NewEngine(f.stores, f.dispatcher, zerolog.Nop())
	return NewService(engine, Remotes{
		Providers:        f.providers,
		ProviderAccounts: f.providerAccounts,
		Accounts:         f.accounts,
		Transactions:     f.transactions,
		Merchants:        f.merchants,
		Categories:       f.categories,
	})
}

// seedTree caches provider 1 owning provider account 10, account 100, goal
// 1000 with period 5000 and card 9000, plus provider 2 with nothing.
func (f *fixture) seedTree(ctx context.Context) error {
	s := f.stores
	if err := s.Providers.UpsertMany(ctx, []models.Provider{
		{ID: 1, Name: "One", Status: models.ProviderStatusSupported},
		{ID: 2, Name: "Two", Status: models.ProviderStatusSupported},
	}); err != nil {
		return err
	}
	if err := s.ProviderAccounts.Upsert(ctx, models.ProviderAccount{ID: 10, ProviderID: 1}); err != nil {
		return err
	}
	if err := s.Accounts.Upsert(ctx, models.Account{ID: 100, ProviderAccountID: 10, Name: "Checking"}); err != nil {
		return err
	}
	if err := s.Goals.Upsert(ctx, models.Goal{ID: 1000, AccountID: 100, Name: "Trip"}); err != nil {
		return err
	}
	if err := s.GoalPeriods.Upsert(ctx, models.GoalPeriod{ID: 5000, GoalID: 1000}); err != nil {
		return err
	}
	return s.Cards.Upsert(ctx, models.Card{ID: 9000, AccountID: 100})
}
