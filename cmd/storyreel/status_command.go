package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/store"
	"storyreel/internal/workflow"
)

// statusOrder fixes the row order of the status table to match the
// lifecycle, with failure states last.
var statusOrder = []store.Status{
	store.StatusCrawled,
	store.StatusScripted,
	store.StatusVoiced,
	store.StatusSubtitled,
	store.StatusReady,
	store.StatusProcessing,
	store.StatusRendered,
	store.StatusError,
	store.StatusPermanentlyFailed,
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show story counts and component health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				manager := workflow.NewManager(cfg, st, logger)
				summary := manager.Status(cmd.Context())
				out := cmd.OutOrStdout()

				rows := make([][]string, 0, len(statusOrder))
				total := 0
				for _, status := range statusOrder {
					count := summary.StoryStats[status]
					total += count
					if count == 0 {
						continue
					}
					rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Store is empty")
				} else {
					fmt.Fprintln(out, renderTable(
						[]string{"STATUS", "STORIES"},
						rows,
						[]columnAlignment{alignLeft, alignRight}))
					fmt.Fprintf(out, "Total: %d\n", total)
				}

				fmt.Fprintln(out)
				healthRows := make([][]string, 0, len(summary.Health))
				for _, h := range summary.Health {
					state := "ok"
					if !h.Ready {
						state = "unavailable"
					}
					healthRows = append(healthRows, []string{h.Name, state, h.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"COMPONENT", "STATE", "DETAIL"},
					healthRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
}
