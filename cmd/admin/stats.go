package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finsync/internal/domain/cache"
	"finsync/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached rows per entity type",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func count[T any](ctx context.Context, s cache.IDStore[T]) (string, int, error) {
	keys, err := s.AllKeys(ctx)
	return s.Type().String(), len(keys), err
}

func runStats(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		st := s.deps.Stores
		counters := []func(context.Context) (string, int, error){
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Providers) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.ProviderAccounts) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Accounts) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Goals) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.GoalPeriods) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Cards) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Merchants) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Transactions) },
			func(ctx context.Context) (string, int, error) { return count(ctx, st.Categories) },
			func(ctx context.Context) (string, int, error) {
				names, err := st.UserTags.AllKeys(ctx)
				return models.TypeUserTag.String(), len(names), err
			},
		}

		counts := make(map[string]int, len(counters))
		order := make([]string, 0, len(counters))
		for _, c := range counters {
			name, n, err := c(ctx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", name, err)
			}
			counts[name] = n
			order = append(order, name)
		}

		if s.json {
			return json.NewEncoder(os.Stdout).Encode(counts)
		}
		for _, name := range order {
			fmt.Printf("%-22s %d\n", name, counts[name])
		}
		return nil
	})
}
