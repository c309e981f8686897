// Package goal caches savings and spending goals and their tracking periods.
package goal

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

const maxNameLength = 128

var (
	ErrGoalNotFound  = errors.New("goal not found")
	ErrNameRequired  = errors.New("name is required")
	ErrNameTooLong   = errors.New("name must be 128 characters or less")
	ErrInvalidTarget = errors.New("target amount must be positive")
	ErrInvalidPeriod = errors.New("end date must not be before start date")
)

// Remotes are the remote goal collections.
type Remotes struct {
	Goals       reconcile.RemoteCollection[models.Goal]
	GoalPeriods reconcile.Source[models.GoalPeriod]
}

// Service contains the goal refresh and mutation operations.
type Service struct {
	goals   *reconcile.Collection[models.Goal]
	periods *reconcile.Collection[models.GoalPeriod]
	remotes Remotes
	log     zerolog.Logger
}

func NewService(engine *reconcile.Engine, remotes Remotes) *Service {
	return &Service{
		goals: reconcile.NewCollection(
			reconcile.Bind(engine, cache.GoalSchema, engine.Stores.Goals, remotes.Goals)),
		periods: reconcile.NewCollection(
			reconcile.Bind(engine, cache.GoalPeriodSchema, engine.Stores.GoalPeriods, remotes.GoalPeriods)),
		remotes: remotes,
		log:     engine.Logger.With().Str("service", "goal").Logger(),
	}
}

// validateRequest checks the fields the remote would reject.
func validateRequest(req models.GoalRequest) error {
	if req.Name == "" {
		return ErrNameRequired
	}
	if len(req.Name) > maxNameLength {
		return ErrNameTooLong
	}
	if req.TargetAmount != nil && !req.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	// dates are ISO-8601 so they order lexically
	if req.EndDate != "" && req.StartDate != "" && req.EndDate < req.StartDate {
		return ErrInvalidPeriod
	}
	return nil
}

func (s *Service) Goal(ctx context.Context, id models.ID) (models.Goal, error) {
	g, ok, err := s.goals.FetchOne(ctx, id)
	if err != nil {
		return g, err
	}
	if !ok {
		return g, fmt.Errorf("goal %d: %w", id, ErrGoalNotFound)
	}
	return g, nil
}

// Goals reads the cached goals, optionally those tracked against one account.
func (s *Service) Goals(ctx context.Context, accountID models.ID) ([]models.Goal, error) {
	var p cache.Predicate
	if accountID != 0 {
		p = cache.Where(cache.ColAccountID, accountID)
	}
	return s.goals.FetchAll(ctx, p)
}

// GoalPeriods reads the cached periods of a goal.
func (s *Service) GoalPeriods(ctx context.Context, goalID models.ID) ([]models.GoalPeriod, error) {
	return s.periods.FetchAll(ctx, cache.Where(cache.ColGoalID, goalID))
}

// RefreshGoals replaces the cached goals. Goals no longer returned are
// evicted with their periods.
func (s *Service) RefreshGoals(ctx context.Context) reconcile.Result {
	return s.goals.RefreshAll(ctx)
}

func (s *Service) RefreshGoal(ctx context.Context, id models.ID) reconcile.Result {
	return s.goals.RefreshOne(ctx, id)
}

// RefreshGoalPeriods replaces the cached periods of one goal. Periods of
// other goals are never touched.
func (s *Service) RefreshGoalPeriods(ctx context.Context, goalID models.ID) reconcile.Result {
	q := reconcile.Query{}.WithFilter(cache.ColGoalID, strconv.FormatInt(goalID, 10))
	return s.periods.RefreshFiltered(ctx, q, reconcile.Filtered[models.ID](cache.Where(cache.ColGoalID, goalID)))
}

func (s *Service) RefreshGoalPeriod(ctx context.Context, id models.ID) reconcile.Result {
	return s.periods.RefreshOne(ctx, id)
}

// CreateGoal validates req, creates the goal remotely and caches it.
func (s *Service) CreateGoal(ctx context.Context, req models.GoalRequest) reconcile.Result {
	if err := validateRequest(req); err != nil {
		return reconcile.Failed(reconcile.ValidationError("goals.create", err))
	}
	return s.goals.Mutate(ctx, func(ctx context.Context) (*models.Goal, error) {
		return s.remotes.Goals.Create(ctx, req)
	})
}

func (s *Service) UpdateGoal(ctx context.Context, id models.ID, req models.GoalRequest) reconcile.Result {
	if err := validateRequest(req); err != nil {
		return reconcile.Failed(reconcile.ValidationError("goals.update", err))
	}
	return s.goals.Mutate(ctx, func(ctx context.Context) (*models.Goal, error) {
		return s.remotes.Goals.Update(ctx, id, req)
	})
}

// DeleteGoal deletes the goal remotely and then removes it and its periods
// from the cache.
func (s *Service) DeleteGoal(ctx context.Context, id models.ID) reconcile.Result {
	return s.goals.Remove(ctx, id, s.remotes.Goals.Delete)
}
