package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

// refreshTarget refreshes one entity type. ids is empty unless --id was given.
type refreshTarget func(ctx context.Context, s *session, opts refreshOptions) reconcile.Result

type refreshOptions struct {
	ids    []models.ID
	parent models.ID
	cached bool
	batch  int
}

var refreshTargets = map[models.EntityType]refreshTarget{
	models.TypeProvider: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return s.deps.Aggregation.RefreshProvidersByIDs(ctx, o.ids)
		}
		return s.deps.Aggregation.RefreshProviders(ctx)
	},
	models.TypeProviderAccount: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return s.deps.Aggregation.SyncProviderAccounts(ctx, o.ids)
		}
		return s.deps.Aggregation.RefreshProviderAccounts(ctx)
	},
	models.TypeAccount: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return refreshEach(ctx, o.ids, s.deps.Aggregation.RefreshAccount)
		}
		return s.deps.Aggregation.RefreshAccounts(ctx)
	},
	models.TypeTransaction: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return s.deps.Aggregation.RefreshTransactionsByIDs(ctx, o.ids)
		}
		if o.parent == 0 {
			return reconcile.Failed(fmt.Errorf("transactions need --id or --parent (account ID)"))
		}
		return s.deps.Aggregation.RefreshAccountTransactions(ctx, o.parent)
	},
	models.TypeMerchant: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		switch {
		case len(o.ids) > 0:
			return s.deps.Aggregation.RefreshMerchantsByIDs(ctx, o.ids, o.batch)
		case o.cached:
			return s.deps.Aggregation.RefreshCachedMerchants(ctx)
		}
		return s.deps.Aggregation.RefreshMerchants(ctx)
	},
	models.TypeTransactionCategory: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		return s.deps.Aggregation.RefreshCategories(ctx)
	},
	models.TypeGoal: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return refreshEach(ctx, o.ids, s.deps.Goals.RefreshGoal)
		}
		return s.deps.Goals.RefreshGoals(ctx)
	},
	models.TypeGoalPeriod: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return refreshEach(ctx, o.ids, s.deps.Goals.RefreshGoalPeriod)
		}
		if o.parent == 0 {
			return reconcile.Failed(fmt.Errorf("goal periods need --id or --parent (goal ID)"))
		}
		return s.deps.Goals.RefreshGoalPeriods(ctx, o.parent)
	},
	models.TypeCard: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		if len(o.ids) > 0 {
			return refreshEach(ctx, o.ids, s.deps.Cards.RefreshCard)
		}
		return s.deps.Cards.RefreshCards(ctx)
	},
	models.TypeUserTag: func(ctx context.Context, s *session, o refreshOptions) reconcile.Result {
		return s.deps.Tags.RefreshUserTags(ctx)
	},
}

// refreshEach refreshes ids one at a time through a single-entity refresh,
// which never evicts rows outside the requested IDs. Every ID is attempted
// and the first failure is reported.
func refreshEach(ctx context.Context, ids []models.ID, refresh func(context.Context, models.ID) reconcile.Result) reconcile.Result {
	results := make([]reconcile.Result, 0, len(ids))
	for _, id := range ids {
		results = append(results, refresh(ctx, id))
	}
	return reconcile.Combine(results...)
}

func targetNames() []string {
	names := make([]string, 0, len(refreshTargets))
	for typ := range refreshTargets {
		names = append(names, typ.String())
	}
	sort.Strings(names)
	return names
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <entity_type>",
	Short: "Refresh one entity type from the remote API",
	Long: `Refresh one entity type from the remote API and reconcile the cache.

Entity types: ` + strings.Join(targetNames(), ", ") + `

Examples:
  # Replace the cached provider list
  admin refresh provider

  # Sync two provider accounts, removing them if the remote no longer has them
  admin refresh provider_account --id=10,11

  # Page through every transaction of account 42
  admin refresh transaction --parent=42

  # Re-fetch every merchant already cached
  admin refresh merchant --cached
`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().String("id", "", "Entity ID(s) to refresh (comma-separated for multiple)")
	refreshCmd.Flags().Int64("parent", 0, "Parent ID for scoped refreshes (account for transactions, goal for goal periods)")
	refreshCmd.Flags().Bool("cached", false, "Refresh every cached merchant by ID")
	refreshCmd.Flags().Int("batch", 0, "ID batch size (default from SYNC_ID_BATCH_SIZE)")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	typ, err := models.ParseEntityType(args[0])
	if err != nil {
		return fmt.Errorf("%w (valid: %s)", err, strings.Join(targetNames(), ", "))
	}
	target := refreshTargets[typ]

	idStr, _ := cmd.Flags().GetString("id")
	ids, err := parseIDs(idStr)
	if err != nil {
		return err
	}
	parent, _ := cmd.Flags().GetInt64("parent")
	cached, _ := cmd.Flags().GetBool("cached")
	batch, _ := cmd.Flags().GetInt("batch")

	opts := refreshOptions{ids: ids, parent: parent, cached: cached, batch: batch}
	return withSession(cmd, func(ctx context.Context, s *session) error {
		return s.report("refresh "+typ.String(), target(ctx, s, opts))
	})
}
