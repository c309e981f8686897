package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

// CollectionConfig wires the engine components for one ID-keyed entity type.
type CollectionConfig[T any] struct {
	Schema  cache.Schema[models.ID, T]
	Store   cache.IDStore[T]
	Source  Source[T]
	Tracker *Tracker
	// Graph, when the type owns other types, makes stale eviction cascade.
	Graph  *Graph
	Narrow *NarrowWrite[T]

	PageSize   int
	BatchSize  int
	WindowSize int
	// KeyPaged declares that page cursors are keys in ascending order.
	KeyPaged bool
	OnPage   PageHook[T]
	Logger   zerolog.Logger
}

// Collection exposes the public refresh operations of one entity type.
type Collection[T any] struct {
	typ        models.EntityType
	keyColumn  string
	store      cache.IDStore[T]
	source     Source[T]
	tracker    *Tracker
	evict      Evictor[models.ID]
	rec        *Reconciler[models.ID, T]
	fetcher    *Fetcher[T]
	batchSize  int
	windowSize int
	log        zerolog.Logger
}

func NewCollection[T any](cfg CollectionConfig[T]) *Collection[T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultPageSize
	}
	typ := cfg.Schema.Type
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}

	evict := Evictor[models.ID](cfg.Store.DeleteMany)
	if cfg.Graph != nil && cfg.Graph.Owns(typ) {
		evict = cfg.Graph.Evictor(typ)
	}

	rec := NewReconciler(ReconcilerConfig[models.ID, T]{
		Store:     cfg.Store,
		Key:       cfg.Schema.Key,
		Evict:     evict,
		Narrow:    cfg.Narrow,
		Protected: func() []models.ID { return tracker.InFlight(typ) },
		Logger:    cfg.Logger,
	})

	fc := FetcherConfig[T]{
		Source:     cfg.Source,
		Reconciler: rec,
		PageSize:   cfg.PageSize,
		OnPage:     cfg.OnPage,
		Logger:     cfg.Logger,
	}
	if cfg.KeyPaged {
		fc.KeyColumn = cfg.Schema.KeyColumn()
	}

	return &Collection[T]{
		typ:        typ,
		keyColumn:  cfg.Schema.KeyColumn(),
		store:      cfg.Store,
		source:     cfg.Source,
		tracker:    tracker,
		evict:      evict,
		rec:        rec,
		fetcher:    NewFetcher(fc),
		batchSize:  cfg.BatchSize,
		windowSize: cfg.WindowSize,
		log:        cfg.Logger.With().Str("entity_type", typ.String()).Logger(),
	}
}

func (c *Collection[T]) Type() models.EntityType { return c.typ }

func (c *Collection[T]) Store() cache.IDStore[T] { return c.store }

func (c *Collection[T]) Reconciler() *Reconciler[models.ID, T] { return c.rec }

func (c *Collection[T]) Fetcher() *Fetcher[T] { return c.fetcher }

// SetOnPage installs the hook called with every reconciled page.
func (c *Collection[T]) SetOnPage(hook PageHook[T]) { c.fetcher.SetOnPage(hook) }

// Resolver returns a Resolver that backfills this collection by ID.
func (c *Collection[T]) Resolver(d Dispatcher) *Resolver {
	cached := func(ctx context.Context, ids []models.ID) ([]models.ID, error) {
		return c.store.KeysMatching(ctx, cache.WhereIDs(c.keyColumn, ids))
	}
	backfill := func(ctx context.Context, ids []models.ID) error {
		_, err := c.fetcher.ByIDs(ctx, ids, c.batchSize, false)
		return err
	}
	return NewResolver(c.typ, cached, c.tracker, d, backfill, c.log)
}

// FetchOne reads a cached row.
func (c *Collection[T]) FetchOne(ctx context.Context, id models.ID) (T, bool, error) {
	return c.store.Get(ctx, id)
}

// FetchAll reads every cached row, or the rows matching p.
func (c *Collection[T]) FetchAll(ctx context.Context, p cache.Predicate) ([]T, error) {
	return c.store.QueryMatching(ctx, p)
}

// RefreshAll replaces the cached collection with the remote one.
func (c *Collection[T]) RefreshAll(ctx context.Context) Result {
	return c.RefreshFiltered(ctx, Query{}, All[models.ID]())
}

// RefreshFiltered fetches the collection selected by q.Filters in one
// request and reconciles it within scope.
func (c *Collection[T]) RefreshFiltered(ctx context.Context, q Query, scope Scope[models.ID]) Result {
	items, err := c.source.FetchAll(ctx, q)
	if err != nil {
		return Failed(err)
	}
	if items == nil {
		return NoData()
	}
	out, err := c.rec.Reconcile(ctx, items, scope)
	if err == nil {
		c.fetcher.observe(ctx, items)
	}
	return resultOf(out, err)
}

// RefreshOne fetches and caches a single entity. A concurrent refresh of the
// same ID makes this call a no-op.
func (c *Collection[T]) RefreshOne(ctx context.Context, id models.ID) Result {
	reserved := c.tracker.TryReserve(c.typ, []models.ID{id})
	if len(reserved) == 0 {
		return NoData()
	}
	defer c.tracker.Release(c.typ, reserved)

	item, err := c.source.FetchOne(ctx, id)
	if err != nil {
		return Failed(err)
	}
	if item == nil {
		return NoData()
	}
	n, err := c.rec.Upsert(ctx, []T{*item})
	if err != nil {
		return Failed(err)
	}
	c.fetcher.observe(ctx, []T{*item})
	return success(n, 0)
}

// RefreshByIDs refreshes ids in batches of batchSize (the collection default
// when zero). IDs already being fetched are skipped; if all are, nothing is
// dispatched and the result is NoData.
func (c *Collection[T]) RefreshByIDs(ctx context.Context, ids []models.ID, batchSize int, prune bool) Result {
	if batchSize <= 0 {
		batchSize = c.batchSize
	}
	reserved := c.tracker.TryReserve(c.typ, ids)
	if len(reserved) == 0 {
		return NoData()
	}
	defer c.tracker.Release(c.typ, reserved)

	return resultOf(c.fetcher.ByIDs(ctx, reserved, batchSize, prune))
}

// RefreshWithPagination reconciles one page and returns its cursors in
// Result.Cursors.
func (c *Collection[T]) RefreshWithPagination(ctx context.Context, before, after *int64, size int, scope Scope[models.ID]) Result {
	out, cursors, err := c.fetcher.Page(ctx, Query{Before: before, After: after, Size: size}, scope)
	res := resultOf(out, err)
	if err == nil {
		res.Cursors = &cursors
	}
	return res
}

// RefreshDrained pages through the whole collection selected by q.
func (c *Collection[T]) RefreshDrained(ctx context.Context, q Query, scope Scope[models.ID]) Result {
	return resultOf(c.fetcher.Drain(ctx, q, scope))
}

// RefreshCachedAll walks every cached key in windows of the configured size
// and refreshes each window by ID. It stops at the first failing window.
func (c *Collection[T]) RefreshCachedAll(ctx context.Context) Result {
	total := Result{Status: StatusNoData}
	for offset := 0; ; offset += c.windowSize {
		keys, err := c.store.KeysMatching(ctx, cache.Predicate{}.Window(c.keyColumn, offset, c.windowSize))
		if err != nil {
			return Failed(fmt.Errorf("failed to list cached %s: %w", c.typ, err))
		}
		if len(keys) == 0 {
			break
		}

		res := c.RefreshByIDs(ctx, keys, c.batchSize, false)
		if res.Status == StatusError {
			return res
		}
		if res.Status == StatusSuccess {
			total.Status = StatusSuccess
		}
		total.Upserted += res.Upserted
		total.Missing = append(total.Missing, res.Missing...)

		if len(keys) < c.windowSize {
			break
		}
	}
	return total
}

// Save stores an entity returned by a remote mutation.
func (c *Collection[T]) Save(ctx context.Context, item T) error {
	_, err := c.rec.Upsert(ctx, []T{item})
	return err
}

// Delete removes ids and, for owner types, everything they own.
func (c *Collection[T]) Delete(ctx context.Context, ids []models.ID) (int, error) {
	return c.evict(ctx, models.UniqueIDs(ids))
}

// Mutate runs a remote create or update and caches the entity it returns.
// A mutation answered without a body leaves the cache untouched.
func (c *Collection[T]) Mutate(ctx context.Context, call func(ctx context.Context) (*T, error)) Result {
	item, err := call(ctx)
	if err != nil {
		return Failed(err)
	}
	if item == nil {
		return NoData()
	}
	if err := c.Save(ctx, *item); err != nil {
		return Failed(fmt.Errorf("failed to cache %s: %w", c.typ, err))
	}
	return Saved(c.rec.key(*item))
}

// Remove deletes id remotely and then from the cache, cascading to the rows
// it owns.
func (c *Collection[T]) Remove(ctx context.Context, id models.ID, call func(ctx context.Context, id models.ID) error) Result {
	if err := call(ctx, id); err != nil {
		return Failed(err)
	}
	n, err := c.Delete(ctx, []models.ID{id})
	if err != nil {
		return Failed(fmt.Errorf("failed to delete cached %s %d: %w", c.typ, id, err))
	}
	return Result{Status: StatusSuccess, Evicted: n}
}
