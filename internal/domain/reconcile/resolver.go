package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finsync/internal/models"
)

// ErrDispatcherClosed is returned by dispatchers that no longer accept work.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher runs detached background work. The ctx passed to Dispatch
// carries values only; fn must not be cancelled when the caller returns.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, fn func(ctx context.Context)) error
}

// AsyncDispatcher runs every task on its own goroutine.
type AsyncDispatcher struct {
	wg sync.WaitGroup
}

func NewAsyncDispatcher() *AsyncDispatcher {
	return &AsyncDispatcher{}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, name string, fn func(ctx context.Context)) error {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(ctx)
	}()
	return nil
}

// Wait blocks until every dispatched task has returned.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// BackfillFunc fetches ids and reconciles them into the cache.
type BackfillFunc func(ctx context.Context, ids []models.ID) error

// Resolver backfills entities referenced by foreign key but not cached.
type Resolver struct {
	typ        models.EntityType
	cached     func(ctx context.Context, ids []models.ID) ([]models.ID, error)
	tracker    *Tracker
	dispatcher Dispatcher
	backfill   BackfillFunc
	log        zerolog.Logger
}

// NewResolver returns a resolver for typ. cached reports which of ids are
// already stored.
func NewResolver(
	typ models.EntityType,
	cached func(ctx context.Context, ids []models.ID) ([]models.ID, error),
	tracker *Tracker,
	dispatcher Dispatcher,
	backfill BackfillFunc,
	log zerolog.Logger,
) *Resolver {
	return &Resolver{
		typ:        typ,
		cached:     cached,
		tracker:    tracker,
		dispatcher: dispatcher,
		backfill:   backfill,
		log:        log.With().Str("entity_type", typ.String()).Logger(),
	}
}

// ResolveMissing schedules one backfill for the referenced IDs that are
// neither cached nor in flight and returns them. The backfill outlives ctx;
// its failure is logged and never reported to the caller.
func (r *Resolver) ResolveMissing(ctx context.Context, referenced []models.ID) ([]models.ID, error) {
	referenced = models.UniqueIDs(referenced)
	if len(referenced) == 0 {
		return nil, nil
	}

	present, err := r.cached(ctx, referenced)
	if err != nil {
		return nil, fmt.Errorf("failed to check cached %s: %w", r.typ, err)
	}
	presentSet := make(map[models.ID]struct{}, len(present))
	for _, id := range present {
		presentSet[id] = struct{}{}
	}

	absent := make([]models.ID, 0, len(referenced))
	for _, id := range referenced {
		if _, ok := presentSet[id]; !ok {
			absent = append(absent, id)
		}
	}
	if len(absent) == 0 {
		return nil, nil
	}

	missing := r.tracker.TryReserve(r.typ, absent)
	if len(missing) == 0 {
		return nil, nil
	}

	err = r.dispatcher.Dispatch(ctx, "backfill "+r.typ.String(), func(ctx context.Context) {
		defer r.tracker.Release(r.typ, missing)

		if err := r.backfill(ctx, missing); err != nil {
			backfillTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("entity_type", r.typ.String()),
				attribute.String("status", "error"),
			))
			r.log.Warn().Err(err).Int("count", len(missing)).Msg("backfill failed")
			return
		}
		backfillTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity_type", r.typ.String()),
			attribute.String("status", "success"),
		))
		r.log.Debug().Int("count", len(missing)).Msg("backfill completed")
	})
	if err != nil {
		r.tracker.Release(r.typ, missing)
		r.log.Warn().Err(err).Int("count", len(missing)).Msg("backfill not dispatched")
		return nil, nil
	}
	return missing, nil
}
