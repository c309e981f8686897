package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"finsync/internal/models"
)

const (
	DefaultPageSize  = 500
	DefaultBatchSize = 50
)

// PageHook observes each reconciled page, typically to resolve the foreign
// keys it references.
type PageHook[T any] func(ctx context.Context, items []T)

// FetcherConfig configures a Fetcher.
type FetcherConfig[T any] struct {
	Source     Source[T]
	Reconciler *Reconciler[models.ID, T]
	PageSize   int
	// KeyColumn, when set, declares that page cursors are keys of this
	// column and that pages are returned in ascending key order. Each page
	// is then reconciled as a key range.
	KeyColumn string
	OnPage    PageHook[T]
	Logger    zerolog.Logger
}

// Fetcher drives cursor pagination and ID-batch chunking on top of a Source
// and a Reconciler.
type Fetcher[T any] struct {
	source    Source[T]
	rec       *Reconciler[models.ID, T]
	typ       models.EntityType
	pageSize  int
	keyColumn string
	onPage    PageHook[T]
	log       zerolog.Logger
}

func NewFetcher[T any](cfg FetcherConfig[T]) *Fetcher[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	typ := cfg.Reconciler.Store().Type()
	return &Fetcher[T]{
		source:    cfg.Source,
		rec:       cfg.Reconciler,
		typ:       typ,
		pageSize:  cfg.PageSize,
		keyColumn: cfg.KeyColumn,
		onPage:    cfg.OnPage,
		log:       cfg.Logger.With().Str("entity_type", typ.String()).Logger(),
	}
}

// SetOnPage replaces the page hook. It must be called before the fetcher is
// used concurrently.
func (f *Fetcher[T]) SetOnPage(hook PageHook[T]) { f.onPage = hook }

func (f *Fetcher[T]) pageQuery(q Query) Query {
	if q.Size <= 0 {
		q.Size = f.pageSize
	}
	return q
}

func (f *Fetcher[T]) observe(ctx context.Context, items []T) {
	if f.onPage != nil && len(items) > 0 {
		f.onPage(ctx, items)
	}
}

// Drain follows the after cursor from q until the remote reports no further
// page, reconciling each page as it arrives. scope must be an all or
// filtered scope covering every page. A failing page aborts the drain and
// leaves earlier pages reconciled; the final sweep only runs when every
// page succeeded.
func (f *Fetcher[T]) Drain(ctx context.Context, q Query, scope Scope[models.ID]) (Outcome[models.ID], error) {
	q = f.pageQuery(q)
	out := Outcome[models.ID]{NoData: true}
	var returned []models.ID
	complete := true

	for pageNum := 1; ; pageNum++ {
		page, err := f.source.FetchPage(ctx, q)
		record(ctx, pageRequests, f.typ, 1)
		if err != nil {
			f.log.Error().Err(err).Int("page", pageNum).Msg("page fetch failed, aborting drain")
			return out, err
		}
		if page.Items == nil {
			if pageNum > 1 {
				// The rest of the collection is unknown, so nothing may be swept.
				f.log.Warn().Int("page", pageNum).Msg("page returned no data mid-drain, skipping sweep")
				complete = false
			}
			break
		}
		out.NoData = false

		if f.keyColumn != "" {
			pageOut, err := f.rec.Reconcile(ctx, page.Items, f.pageRange(scope, q, page.Before, page.After))
			out.add(pageOut)
			if err != nil {
				return out, err
			}
		} else {
			n, err := f.rec.Upsert(ctx, page.Items)
			out.Upserted += n
			if err != nil {
				return out, err
			}
			for _, item := range page.Items {
				returned = append(returned, f.rec.key(item))
			}
		}
		f.observe(ctx, page.Items)

		if page.After == nil {
			break
		}
		if q.After != nil && *page.After == *q.After {
			return out, fmt.Errorf("%s pagination did not advance past cursor %d", f.typ, *q.After)
		}
		q.After = page.After
	}

	if out.NoData || f.keyColumn != "" || !complete {
		return out, nil
	}
	swept, err := f.rec.Sweep(ctx, scope, returned)
	out.add(swept)
	return out, err
}

// Page fetches and reconciles a single page and returns its cursors so the
// caller can resume. Without a key column a lone page cannot prove anything
// stale, so it is only upserted.
func (f *Fetcher[T]) Page(ctx context.Context, q Query, scope Scope[models.ID]) (Outcome[models.ID], PageCursors, error) {
	q = f.pageQuery(q)
	page, err := f.source.FetchPage(ctx, q)
	record(ctx, pageRequests, f.typ, 1)
	if err != nil {
		return Outcome[models.ID]{}, PageCursors{}, err
	}
	cursors := PageCursors{Before: page.Before, After: page.After}
	if page.Items == nil {
		return Outcome[models.ID]{NoData: true}, cursors, nil
	}

	var out Outcome[models.ID]
	if f.keyColumn != "" {
		out, err = f.rec.Reconcile(ctx, page.Items, f.pageRange(scope, q, page.Before, page.After))
	} else {
		out.Upserted, err = f.rec.Upsert(ctx, page.Items)
	}
	if err != nil {
		return out, cursors, err
	}
	f.observe(ctx, page.Items)
	return out, cursors, nil
}

// pageRange is the key range a key-paged page is authoritative for. The
// lower bound is the request's after cursor, else the page's before cursor.
// The upper bound is the page's after cursor; the last page of a backward
// fetch stops below the request's before cursor. Open bounds are only used
// at the ends of the collection.
func (f *Fetcher[T]) pageRange(scope Scope[models.ID], q Query, before, after *int64) Scope[models.ID] {
	lower := q.After
	if lower == nil {
		lower = before
	}
	upper := after
	if upper == nil && q.Before != nil {
		upper = Int64(*q.Before - 1)
	}
	return Range[models.ID](scope.pred, f.keyColumn, lower, upper)
}

// ByIDs refreshes ids in input-ordered chunks of at most batchSize. Each
// chunk is paginated until exhausted before the next chunk starts.
func (f *Fetcher[T]) ByIDs(ctx context.Context, ids []models.ID, batchSize int, prune bool) (Outcome[models.ID], error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	ids = models.UniqueIDs(ids)
	out := Outcome[models.ID]{NoData: true}

	for start := 0; start < len(ids); start += batchSize {
		chunk := ids[start:min(start+batchSize, len(ids))]
		chunkOut, err := f.chunk(ctx, chunk, prune)
		noData := out.NoData && chunkOut.NoData
		out.add(chunkOut)
		out.NoData = noData
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (f *Fetcher[T]) chunk(ctx context.Context, ids []models.ID, prune bool) (Outcome[models.ID], error) {
	q := f.pageQuery(Query{})
	out := Outcome[models.ID]{NoData: true}
	var returned []models.ID

	for {
		page, err := f.source.FetchByIDs(ctx, ids, q)
		record(ctx, pageRequests, f.typ, 1)
		if err != nil {
			return out, err
		}
		if page.Items == nil {
			break
		}
		out.NoData = false

		n, err := f.rec.Upsert(ctx, page.Items)
		out.Upserted += n
		if err != nil {
			return out, err
		}
		for _, item := range page.Items {
			returned = append(returned, f.rec.key(item))
		}
		f.observe(ctx, page.Items)

		if page.After == nil {
			break
		}
		if q.After != nil && *page.After == *q.After {
			return out, fmt.Errorf("%s batch pagination did not advance past cursor %d", f.typ, *q.After)
		}
		q.After = page.After
	}

	if out.NoData {
		return out, nil
	}
	swept, err := f.rec.Sweep(ctx, ByIDs(ids, prune), returned)
	out.add(swept)
	return out, err
}
