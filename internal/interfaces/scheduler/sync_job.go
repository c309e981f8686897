package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"finsync/internal/domain/aggregation"
	"finsync/internal/domain/card"
	"finsync/internal/domain/goal"
	"finsync/internal/domain/reconcile"
	"finsync/internal/domain/tag"
	"finsync/internal/models"
)

// Step is one refresh of a sync job.
type Step struct {
	Name string
	Run  func(ctx context.Context) reconcile.Result
	// Required steps abort the job when they fail. Failures of other steps
	// are collected and reported once every step ran.
	Required bool
}

// SyncJob runs its steps in order.
type SyncJob struct {
	id    string
	name  string
	steps []Step
	log   zerolog.Logger
}

func NewSyncJob(name string, steps []Step, log zerolog.Logger) *SyncJob {
	id := uuid.NewString()
	return &SyncJob{
		id:    id,
		name:  name,
		steps: steps,
		log:   log.With().Str("job_id", id).Str("job", name).Logger(),
	}
}

func (j *SyncJob) Execute(ctx context.Context) error {
	var errs []error
	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := step.Run(ctx)
		log := j.log.With().Str("step", step.Name).Str("status", res.Status.String()).Logger()
		if res.Status != reconcile.StatusError {
			log.Info().Int("upserted", res.Upserted).Int("evicted", res.Evicted).Int("missing", len(res.Missing)).Msg("step completed")
			continue
		}

		err := fmt.Errorf("%s: %w", step.Name, res.Err)
		if step.Required {
			log.Error().Err(res.Err).Msg("required step failed, aborting")
			return err
		}
		log.Warn().Err(res.Err).Msg("step failed")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (j *SyncJob) ID() string { return j.id }

func (j *SyncJob) Description() string {
	names := make([]string, len(j.steps))
	for i, s := range j.steps {
		names[i] = s.Name
	}
	return fmt.Sprintf("%s (%s)", j.name, strings.Join(names, ", "))
}

// Services are the orchestration services a full sync refreshes.
type Services struct {
	Aggregation *aggregation.Service
	Goals       *goal.Service
	Cards       *card.Service
	Tags        *tag.Service
}

// FullSyncSteps refreshes owners before the types they own. The transaction
// step covers every account cached once the account step finished.
func FullSyncSteps(s Services) []Step {
	agg := s.Aggregation
	return []Step{
		{Name: "providers", Run: agg.RefreshProviders, Required: true},
		{Name: "provider_accounts", Run: agg.RefreshProviderAccounts, Required: true},
		{Name: "accounts", Run: agg.RefreshAccounts, Required: true},
		{Name: "goals", Run: s.Goals.RefreshGoals},
		{Name: "cards", Run: s.Cards.RefreshCards},
		{Name: "transaction_categories", Run: agg.RefreshCategories},
		{Name: "transactions", Run: func(ctx context.Context) reconcile.Result {
			return refreshCachedAccountTransactions(ctx, agg)
		}},
		{Name: "merchants", Run: agg.RefreshCachedMerchants},
		{Name: "user_tags", Run: s.Tags.RefreshUserTags},
	}
}

func refreshCachedAccountTransactions(ctx context.Context, agg *aggregation.Service) reconcile.Result {
	accounts, err := agg.Accounts(ctx, 0)
	if err != nil {
		return reconcile.Failed(fmt.Errorf("failed to list cached accounts: %w", err))
	}
	if len(accounts) == 0 {
		return reconcile.NoData()
	}
	ids := make([]models.ID, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return agg.RefreshTransactionsForAccounts(ctx, ids)
}

// FullSyncProvider returns a JobProvider that schedules one full sync per
// run.
func FullSyncProvider(s Services, log zerolog.Logger) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		return []Job{NewSyncJob("full sync", FullSyncSteps(s), log)}, nil
	}
}
