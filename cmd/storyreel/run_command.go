package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/store"
	"storyreel/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run both pipelines continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				manager := workflow.NewManager(cfg, st, logger)
				out := cmd.OutOrStdout()

				if once {
					result, err := manager.RunOnce(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cycle complete: %d ready, %d rendered, %d failures\n",
						result.Stories.Ready, result.Renders.Rendered,
						result.Stories.Failed+result.Renders.Failed)
					return nil
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := manager.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(out, "storyreel running (lock: %s); press Ctrl-C to stop\n", manager.LockPath())

				<-runCtx.Done()
				manager.Stop()
				fmt.Fprintln(out, "storyreel stopped")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single pipeline cycle and exit")
	return cmd
}
