package reconcile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

// Lookup returns the keys of the child rows owned by parentIDs.
type Lookup func(ctx context.Context, parentIDs []models.ID) ([]models.ID, error)

// Edge links a node to one of the entity types it owns.
type Edge struct {
	Child  models.EntityType
	Lookup Lookup
}

// Node is one entity type of the ownership tree.
type Node struct {
	Type   models.EntityType
	Delete func(ctx context.Context, ids []models.ID) (int, error)
	Edges  []Edge
}

// Deleted counts the rows removed by a cascade, per entity type.
type Deleted map[models.EntityType]int

// Total returns the number of rows removed across all types.
func (d Deleted) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Graph propagates deletions from owners to the rows they own. The store
// does not enforce foreign keys, so every path that deletes an owner must go
// through a Graph.
type Graph struct {
	nodes map[models.EntityType]Node
}

// NewGraph builds a graph from nodes. Edges must point at nodes of the graph
// and must not form a cycle.
func NewGraph(nodes ...Node) (*Graph, error) {
	g := &Graph{nodes: make(map[models.EntityType]Node, len(nodes))}
	for _, n := range nodes {
		if _, dup := g.nodes[n.Type]; dup {
			return nil, fmt.Errorf("duplicate cascade node %s", n.Type)
		}
		g.nodes[n.Type] = n
	}
	for _, n := range nodes {
		for _, e := range n.Edges {
			if _, ok := g.nodes[e.Child]; !ok {
				return nil, fmt.Errorf("cascade edge %s -> %s has no child node", n.Type, e.Child)
			}
		}
	}
	for _, n := range nodes {
		if err := g.checkAcyclic(n.Type, map[models.EntityType]bool{}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) checkAcyclic(t models.EntityType, path map[models.EntityType]bool) error {
	if path[t] {
		return fmt.Errorf("cascade cycle through %s", t)
	}
	path[t] = true
	defer delete(path, t)
	for _, e := range g.nodes[t].Edges {
		if err := g.checkAcyclic(e.Child, path); err != nil {
			return err
		}
	}
	return nil
}

// Owns reports whether t has child types.
func (g *Graph) Owns(t models.EntityType) bool {
	return len(g.nodes[t].Edges) > 0
}

// CascadeDelete deletes ids of type t and, level by level, every row they
// transitively own. Each level is deleted before its children are looked up.
func (g *Graph) CascadeDelete(ctx context.Context, t models.EntityType, ids []models.ID) (Deleted, error) {
	ctx, span := tracer.Start(ctx, "reconcile.CascadeDelete", trace.WithAttributes(
		attribute.String("entity_type", t.String()),
		attribute.Int("ids.count", len(ids)),
	))
	defer span.End()

	deleted := Deleted{}
	if err := g.cascade(ctx, t, models.UniqueIDs(ids), deleted); err != nil {
		span.RecordError(err)
		return deleted, err
	}
	for typ, n := range deleted {
		record(ctx, cascadeTotal, typ, n)
	}
	return deleted, nil
}

func (g *Graph) cascade(ctx context.Context, t models.EntityType, ids []models.ID, deleted Deleted) error {
	if len(ids) == 0 {
		return nil
	}
	node, ok := g.nodes[t]
	if !ok {
		return fmt.Errorf("no cascade node for %s", t)
	}

	n, err := node.Delete(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", t, err)
	}
	deleted[t] += n

	for _, e := range node.Edges {
		children, err := e.Lookup(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to look up %s owned by %s: %w", e.Child, t, err)
		}
		if err := g.cascade(ctx, e.Child, children, deleted); err != nil {
			return err
		}
	}
	return nil
}

// Evictor returns an Evictor that cascades from t.
func (g *Graph) Evictor(t models.EntityType) Evictor[models.ID] {
	return func(ctx context.Context, ids []models.ID) (int, error) {
		deleted, err := g.CascadeDelete(ctx, t, ids)
		return deleted[t], err
	}
}

// ChildLookup finds child keys through the parent column of store.
func ChildLookup[T any](store cache.IDStore[T], parentColumn string) Lookup {
	return func(ctx context.Context, parentIDs []models.ID) ([]models.ID, error) {
		return store.KeysMatching(ctx, cache.WhereIDs(parentColumn, parentIDs))
	}
}

// NewOwnershipGraph encodes Provider -> ProviderAccount -> Account ->
// {Goal -> GoalPeriod, Card}.
func NewOwnershipGraph(s *cache.Stores) *Graph {
	g, err := NewGraph(
		Node{
			Type:   models.TypeProvider,
			Delete: s.Providers.DeleteMany,
			Edges: []Edge{
				{Child: models.TypeProviderAccount, Lookup: ChildLookup(s.ProviderAccounts, cache.ColProviderID)},
			},
		},
		Node{
			Type:   models.TypeProviderAccount,
			Delete: s.ProviderAccounts.DeleteMany,
			Edges: []Edge{
				{Child: models.TypeAccount, Lookup: ChildLookup(s.Accounts, cache.ColProviderAccountID)},
			},
		},
		Node{
			Type:   models.TypeAccount,
			Delete: s.Accounts.DeleteMany,
			Edges: []Edge{
				{Child: models.TypeGoal, Lookup: ChildLookup(s.Goals, cache.ColAccountID)},
				{Child: models.TypeCard, Lookup: ChildLookup(s.Cards, cache.ColAccountID)},
			},
		},
		Node{
			Type:   models.TypeGoal,
			Delete: s.Goals.DeleteMany,
			Edges: []Edge{
				{Child: models.TypeGoalPeriod, Lookup: ChildLookup(s.GoalPeriods, cache.ColGoalID)},
			},
		},
		Node{Type: models.TypeGoalPeriod, Delete: s.GoalPeriods.DeleteMany},
		Node{Type: models.TypeCard, Delete: s.Cards.DeleteMany},
	)
	if err != nil {
		// the tree above is static
		panic(err)
	}
	return g
}
