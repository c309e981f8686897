// Package reconcile keeps the local cache consistent with the remote
// collections: it merges results, evicts stale rows, cascades deletions to
// owned rows, coalesces concurrent fetches and backfills missing references.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"finsync/internal/domain/cache"
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeFiltered
	scopeIDs
)

func (k scopeKind) String() string {
	switch k {
	case scopeAll:
		return "all"
	case scopeFiltered:
		return "filtered"
	default:
		return "ids"
	}
}

// Scope bounds the rows a remote result is authoritative for. Only cached
// keys inside the scope can be judged stale.
type Scope[K comparable] struct {
	kind  scopeKind
	pred  cache.Predicate
	ids   []K
	prune bool
}

// All is the scope of an unfiltered full-collection fetch.
func All[K comparable]() Scope[K] {
	return Scope[K]{kind: scopeAll}
}

// Filtered is the scope of a fetch restricted to the rows matching pred,
// typically a parent filter such as account_id IN (...).
func Filtered[K comparable](pred cache.Predicate) Scope[K] {
	return Scope[K]{kind: scopeFiltered, pred: pred}
}

// Range narrows base to keys in (lower, upper] on column. A nil bound is
// open. It is the scope of one page of a collection paginated by key.
func Range[K comparable](base cache.Predicate, column string, lower, upper *int64) Scope[K] {
	pred := base
	if lower != nil {
		pred = pred.Above(column, *lower)
	}
	if upper != nil {
		pred = pred.AtMost(column, *upper)
	}
	return Scope[K]{kind: scopeFiltered, pred: pred}
}

// ByIDs is the scope of a fetch of explicit IDs. Requested IDs missing from
// the response are reported as unresolved; they are deleted only when
// pruneUnresolvedRequestedIDs is set.
func ByIDs[K comparable](ids []K, pruneUnresolvedRequestedIDs bool) Scope[K] {
	return Scope[K]{kind: scopeIDs, ids: ids, prune: pruneUnresolvedRequestedIDs}
}

// Predicate returns the filter of a filtered scope and the zero Predicate
// otherwise.
func (s Scope[K]) Predicate() cache.Predicate { return s.pred }

// Outcome counts what a reconciliation did.
type Outcome[K comparable] struct {
	Upserted   int
	Evicted    []K
	Unresolved []K
	// NoData is set when the remote returned no data and nothing was touched.
	NoData bool
}

func (o *Outcome[K]) add(other Outcome[K]) {
	o.Upserted += other.Upserted
	o.Evicted = append(o.Evicted, other.Evicted...)
	o.Unresolved = append(o.Unresolved, other.Unresolved...)
}

// NarrowWrite updates existing rows with a subset of the incoming attributes.
// It is used for sparse list responses that must not clobber richer rows
// cached from detail responses.
type NarrowWrite[T any] struct {
	// Applies selects the incoming items that carry only sparse attributes.
	Applies func(incoming T) bool
	// Merge returns the row to store when a selected item is already cached.
	Merge func(existing, incoming T) T
}

// Evictor deletes stale keys and reports how many rows it removed. A
// cascade evictor also removes the rows the keys own.
type Evictor[K comparable] func(ctx context.Context, keys []K) (int, error)

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig[K comparable, T any] struct {
	Store cache.Store[K, T]
	Key   func(T) K
	// Evict defaults to Store.DeleteMany.
	Evict  Evictor[K]
	Narrow *NarrowWrite[T]
	// Protected returns keys held by a concurrent narrower fetch. They are
	// never evicted by all or filtered scopes.
	Protected func() []K
	Logger    zerolog.Logger
}

// Reconciler merges remote result sets into one store.
type Reconciler[K comparable, T any] struct {
	store     cache.Store[K, T]
	key       func(T) K
	evict     Evictor[K]
	narrow    *NarrowWrite[T]
	protected func() []K
	log       zerolog.Logger
}

func NewReconciler[K comparable, T any](cfg ReconcilerConfig[K, T]) *Reconciler[K, T] {
	r := &Reconciler[K, T]{
		store:     cfg.Store,
		key:       cfg.Key,
		evict:     cfg.Evict,
		narrow:    cfg.Narrow,
		protected: cfg.Protected,
		log:       cfg.Logger.With().Str("entity_type", cfg.Store.Type().String()).Logger(),
	}
	if r.evict == nil {
		r.evict = cfg.Store.DeleteMany
	}
	return r
}

// Store returns the reconciled store.
func (r *Reconciler[K, T]) Store() cache.Store[K, T] { return r.store }

// Reconcile upserts remote and then evicts the cached keys in scope that
// remote does not contain. Upserts always land before stale keys are
// computed.
func (r *Reconciler[K, T]) Reconcile(ctx context.Context, remote []T, scope Scope[K]) (Outcome[K], error) {
	ctx, span := tracer.Start(ctx, "reconcile.Reconcile", trace.WithAttributes(
		attribute.String("entity_type", r.store.Type().String()),
		attribute.String("scope", scope.kind.String()),
		attribute.Int("remote.count", len(remote)),
	))
	defer span.End()

	upserted, err := r.Upsert(ctx, remote)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome[K]{}, err
	}

	returned := make([]K, len(remote))
	for i, item := range remote {
		returned[i] = r.key(item)
	}

	out, err := r.Sweep(ctx, scope, returned)
	out.Upserted = upserted
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// Upsert writes items without evicting anything.
func (r *Reconciler[K, T]) Upsert(ctx context.Context, items []T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	rows := items
	if r.narrow != nil {
		rows = make([]T, len(items))
		for i, item := range items {
			rows[i] = item
			if !r.narrow.Applies(item) {
				continue
			}
			existing, ok, err := r.store.Get(ctx, r.key(item))
			if err != nil {
				return 0, fmt.Errorf("failed to read %s for narrow write: %w", r.store.Type(), err)
			}
			if ok {
				rows[i] = r.narrow.Merge(existing, item)
			}
		}
	}

	if err := r.store.UpsertMany(ctx, rows); err != nil {
		return 0, err
	}
	record(ctx, upsertedTotal, r.store.Type(), len(rows))
	return len(rows), nil
}

// Sweep evicts the cached keys in scope that are not in returned. Drains
// that upsert page by page call it once after the last page.
func (r *Reconciler[K, T]) Sweep(ctx context.Context, scope Scope[K], returned []K) (Outcome[K], error) {
	var out Outcome[K]
	seen := cache.KeySet(returned)

	var stale []K
	switch scope.kind {
	case scopeIDs:
		for _, id := range scope.ids {
			if _, ok := seen[id]; !ok {
				out.Unresolved = append(out.Unresolved, id)
			}
		}
		record(ctx, unresolvedTotal, r.store.Type(), len(out.Unresolved))
		if !scope.prune || len(out.Unresolved) == 0 {
			if len(out.Unresolved) > 0 {
				r.log.Debug().Int("count", len(out.Unresolved)).Msg("requested keys not returned by remote")
			}
			return out, nil
		}
		stale = out.Unresolved

	default:
		var cached []K
		var err error
		if scope.kind == scopeAll {
			cached, err = r.store.AllKeys(ctx)
		} else {
			cached, err = r.store.KeysMatching(ctx, scope.pred)
		}
		if err != nil {
			return out, fmt.Errorf("failed to list cached %s keys: %w", r.store.Type(), err)
		}

		var protected map[K]struct{}
		if r.protected != nil {
			protected = cache.KeySet(r.protected())
		}
		for _, k := range cached {
			if _, ok := seen[k]; ok {
				continue
			}
			if _, ok := protected[k]; ok {
				continue
			}
			stale = append(stale, k)
		}
	}

	if len(stale) == 0 {
		return out, nil
	}

	if _, err := r.evict(ctx, stale); err != nil {
		return out, fmt.Errorf("failed to evict stale %s: %w", r.store.Type(), err)
	}
	out.Evicted = stale
	record(ctx, evictedTotal, r.store.Type(), len(stale))
	r.log.Debug().Int("count", len(stale)).Str("scope", scope.kind.String()).Msg("evicted stale rows")
	return out, nil
}
