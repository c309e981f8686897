// Command admin runs one-off refresh and delete operations against the local
// aggregation cache.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"finsync/internal/app"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
	"finsync/internal/shared/config"
	"finsync/internal/shared/logger"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Management commands for the finsync cache",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Minute, "Timeout for the operation (e.g., 5m, 1h)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session is the state shared by one command invocation.
type session struct {
	deps       *app.Dependencies
	dispatcher *reconcile.AsyncDispatcher
	log        zerolog.Logger
	json       bool
}

// withSession loads configuration, opens the cache and runs fn under the
// --timeout deadline. Backfills started by fn finish before it returns.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewWithOptions(os.Stderr, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	dispatcher := reconcile.NewAsyncDispatcher()
	deps, err := app.NewDependencies(cmd.Context(), cfg, dispatcher, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	err = fn(logger.WithContext(ctx, log), &session{deps: deps, dispatcher: dispatcher, log: log, json: jsonOutput})
	dispatcher.Wait()
	return err
}

// parseIDs parses a comma-separated list of IDs.
func parseIDs(s string) ([]models.ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]models.ID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type resultOutput struct {
	Operation string      `json:"operation"`
	Status    string      `json:"status"`
	Upserted  int         `json:"upserted"`
	Evicted   int         `json:"evicted"`
	Missing   []models.ID `json:"missing,omitempty"`
	Keys      []models.ID `json:"keys,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

// report prints res and returns its error.
func (s *session) report(op string, res reconcile.Result) error {
	out := resultOutput{
		Operation: op,
		Status:    res.Status.String(),
		Upserted:  res.Upserted,
		Evicted:   res.Evicted,
		Missing:   res.Missing,
		Keys:      res.Keys,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		out.ErrorKind = reconcile.KindOf(res.Err).String()
	}

	if s.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Printf("%-24s %-8s upserted=%d evicted=%d", op, out.Status, out.Upserted, out.Evicted)
		if len(out.Missing) > 0 {
			fmt.Printf(" missing=%v", out.Missing)
		}
		if len(out.Keys) > 0 {
			fmt.Printf(" keys=%v", out.Keys)
		}
		fmt.Println()
	}
	return res.Err
}
