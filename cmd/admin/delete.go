package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <provider_account|goal> <id>",
	Short: "Delete an entity remotely and remove it and everything it owns from the cache",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %q: %w", args[1], err)
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		switch args[0] {
		case "provider_account":
			return s.report("delete provider_account", s.deps.Aggregation.DeleteProviderAccount(ctx, id))
		case "goal":
			return s.report("delete goal", s.deps.Goals.DeleteGoal(ctx, id))
		default:
			return fmt.Errorf("cannot delete %q: only provider_account and goal are deletable", args[0])
		}
	})
}
