package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/domain/cache"
	"finsync/internal/infrastructure/memstore"
	"finsync/internal/models"
)

func TestCascadeDelete_Provider(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	seedTree(t, s)
	g := NewOwnershipGraph(s)

	deleted, err := g.CascadeDelete(ctx, models.TypeProvider, []models.ID{1})
	require.NoError(t, err)

	assert.Equal(t, Deleted{
		models.TypeProvider:        1,
		models.TypeProviderAccount: 1,
		models.TypeAccount:         3,
		models.TypeGoal:            1,
		models.TypeGoalPeriod:      1,
		models.TypeCard:            1,
	}, deleted)
	assert.Equal(t, 8, deleted.Total())

	assert.Equal(t, []models.ID{2}, keysOf(t, s.Providers))
	assert.Equal(t, []models.ID{20}, keysOf(t, s.ProviderAccounts))
	assert.Equal(t, []models.ID{200}, keysOf(t, s.Accounts))
	assert.Empty(t, keysOf(t, s.Goals))
	assert.Empty(t, keysOf(t, s.GoalPeriods))
	assert.Equal(t, []models.ID{7001}, keysOf(t, s.Cards))
}

func TestCascadeDelete_ViaStaleEviction(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	seedTree(t, s)
	g := NewOwnershipGraph(s)
	rec := NewReconciler(ReconcilerConfig[models.ID, models.Provider]{
		Store:  s.Providers,
		Key:    cache.ProviderSchema.Key,
		Evict:  g.Evictor(models.TypeProvider),
		Logger: zerolog.Nop(),
	})

	out, err := rec.Reconcile(ctx, []models.Provider{{ID: 2, Name: "Other"}}, All[models.ID]())
	require.NoError(t, err)

	assert.Equal(t, []models.ID{1}, out.Evicted)
	assert.Equal(t, []models.ID{20}, keysOf(t, s.ProviderAccounts))
	assert.Equal(t, []models.ID{200}, keysOf(t, s.Accounts))
	assert.Empty(t, keysOf(t, s.Goals))
	assert.Empty(t, keysOf(t, s.GoalPeriods))
	assert.Equal(t, []models.ID{7001}, keysOf(t, s.Cards))
}

func TestCascadeDelete_OrphansOfMissingParent(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewStores()
	// children inserted before their parent was ever fetched
	require.NoError(t, s.Accounts.Upsert(ctx, models.Account{ID: 1, ProviderAccountID: 99}))
	require.NoError(t, s.Cards.Upsert(ctx, models.Card{ID: 2, AccountID: 1}))

	deleted, err := NewOwnershipGraph(s).CascadeDelete(ctx, models.TypeProviderAccount, []models.ID{99})
	require.NoError(t, err)

	assert.Equal(t, 0, deleted[models.TypeProviderAccount])
	assert.Equal(t, 1, deleted[models.TypeAccount])
	assert.Empty(t, keysOf(t, s.Cards))
}

func TestCascadeDelete_ParentDeletedBeforeChildLookup(t *testing.T) {
	ctx := context.Background()
	var order []string

	g, err := NewGraph(
		Node{
			Type: models.TypeGoal,
			Delete: func(ctx context.Context, ids []models.ID) (int, error) {
				order = append(order, "delete goal")
				return len(ids), nil
			},
			Edges: []Edge{{
				Child: models.TypeGoalPeriod,
				Lookup: func(ctx context.Context, parentIDs []models.ID) ([]models.ID, error) {
					order = append(order, "lookup periods")
					return []models.ID{5}, nil
				},
			}},
		},
		Node{
			Type: models.TypeGoalPeriod,
			Delete: func(ctx context.Context, ids []models.ID) (int, error) {
				order = append(order, "delete periods")
				return len(ids), nil
			},
		},
	)
	require.NoError(t, err)

	_, err = g.CascadeDelete(ctx, models.TypeGoal, []models.ID{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete goal", "lookup periods", "delete periods"}, order)
}

func TestCascadeDelete_StopsOnError(t *testing.T) {
	boom := errors.New("disk full")
	childDeleted := false

	g, err := NewGraph(
		Node{
			Type:   models.TypeGoal,
			Delete: func(ctx context.Context, ids []models.ID) (int, error) { return 0, boom },
			Edges: []Edge{{
				Child:  models.TypeGoalPeriod,
				Lookup: func(ctx context.Context, parentIDs []models.ID) ([]models.ID, error) { return []models.ID{1}, nil },
			}},
		},
		Node{
			Type: models.TypeGoalPeriod,
			Delete: func(ctx context.Context, ids []models.ID) (int, error) {
				childDeleted = true
				return len(ids), nil
			},
		},
	)
	require.NoError(t, err)

	_, err = g.CascadeDelete(context.Background(), models.TypeGoal, []models.ID{1})
	assert.ErrorIs(t, err, boom)
	assert.False(t, childDeleted)
}

func TestNewGraph_Validation(t *testing.T) {
	noop := func(ctx context.Context, ids []models.ID) (int, error) { return 0, nil }
	lookup := func(ctx context.Context, ids []models.ID) ([]models.ID, error) { return nil, nil }

	tests := []struct {
		name  string
		nodes []Node
	}{
		{
			name:  "duplicate node",
			nodes: []Node{{Type: models.TypeCard, Delete: noop}, {Type: models.TypeCard, Delete: noop}},
		},
		{
			name:  "dangling edge",
			nodes: []Node{{Type: models.TypeAccount, Delete: noop, Edges: []Edge{{Child: models.TypeCard, Lookup: lookup}}}},
		},
		{
			name: "cycle",
			nodes: []Node{
				{Type: models.TypeGoal, Delete: noop, Edges: []Edge{{Child: models.TypeGoalPeriod, Lookup: lookup}}},
				{Type: models.TypeGoalPeriod, Delete: noop, Edges: []Edge{{Child: models.TypeGoal, Lookup: lookup}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.nodes...)
			assert.Error(t, err)
		})
	}
}

func TestGraph_Owns(t *testing.T) {
	g := NewOwnershipGraph(memstore.NewStores())
	assert.True(t, g.Owns(models.TypeProvider))
	assert.True(t, g.Owns(models.TypeAccount))
	assert.False(t, g.Owns(models.TypeCard))
	assert.False(t, g.Owns(models.TypeMerchant))
}
