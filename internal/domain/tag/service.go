// Package tag caches the user's transaction tags. Tags are keyed by name and
// always refreshed as a whole.
package tag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

var ErrTagNotFound = errors.New("tag not found")

// Source lists the user's tags.
type Source interface {
	FetchAll(ctx context.Context, q reconcile.Query) ([]models.UserTag, error)
}

// Service contains the user tag operations.
type Service struct {
	store  cache.Store[string, models.UserTag]
	source Source
	rec    *reconcile.Reconciler[string, models.UserTag]
	log    zerolog.Logger
}

func NewService(engine *reconcile.Engine, source Source) *Service {
	store := engine.Stores.UserTags
	return &Service{
		store:  store,
		source: source,
		rec: reconcile.NewReconciler(reconcile.ReconcilerConfig[string, models.UserTag]{
			Store:  store,
			Key:    models.UserTag.Key,
			Logger: engine.Logger,
		}),
		log: engine.Logger.With().Str("service", "tag").Logger(),
	}
}

// RefreshUserTags replaces the cached tags with the remote list.
func (s *Service) RefreshUserTags(ctx context.Context) reconcile.Result {
	tags, err := s.source.FetchAll(ctx, reconcile.Query{})
	if err != nil {
		return reconcile.Failed(err)
	}
	if tags == nil {
		return reconcile.NoData()
	}
	out, err := s.rec.Reconcile(ctx, tags, reconcile.All[string]())
	if err != nil {
		return reconcile.Failed(err)
	}
	s.log.Debug().Int("upserted", out.Upserted).Int("evicted", len(out.Evicted)).Msg("user tags refreshed")
	return reconcile.Result{Status: reconcile.StatusSuccess, Upserted: out.Upserted, Evicted: len(out.Evicted)}
}

// UserTags reads the cached tags ordered by name.
func (s *Service) UserTags(ctx context.Context) ([]models.UserTag, error) {
	return s.store.QueryMatching(ctx, cache.Predicate{OrderBy: cache.ColTagName})
}

func (s *Service) UserTag(ctx context.Context, name string) (models.UserTag, error) {
	t, ok, err := s.store.Get(ctx, name)
	if err != nil {
		return t, err
	}
	if !ok {
		return t, fmt.Errorf("%q: %w", name, ErrTagNotFound)
	}
	return t, nil
}
