package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/render"
	"storyreel/internal/stories"
	"storyreel/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [story-id]",
		Short: "Run the story pipeline (one story, or every pending story)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				processor := stories.NewProcessor(cfg, st, logger)
				out := cmd.OutOrStdout()

				if len(args) == 1 {
					story, err := processor.Process(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Story %s is now %s\n", story.ID, story.Status)
					if story.ErrorMessage != "" {
						fmt.Fprintf(out, "  %s\n", story.ErrorMessage)
					}
					return nil
				}

				result, err := processor.ProcessBatch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Story pipeline: %d ready, %d failed, %d permanently failed\n",
					result.Ready, result.Failed, result.PermanentlyFailed)
				return nil
			})
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render [story-id]",
		Short: "Run the video pipeline (one story, or every ready story)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				renderer := render.NewRenderer(cfg, st, logger)
				out := cmd.OutOrStdout()

				if len(args) == 1 {
					story, err := renderer.Render(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Story %s is now %s\n", story.ID, story.Status)
					if story.Status == store.StatusRendered {
						fmt.Fprintf(out, "  video: %s\n", story.VideoPath)
					} else if story.ErrorMessage != "" {
						fmt.Fprintf(out, "  %s\n", story.ErrorMessage)
					}
					return nil
				}

				result, err := renderer.RenderBatch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Video pipeline: %d rendered, %d failed, %d permanently failed\n",
					result.Rendered, result.Failed, result.PermanentlyFailed)
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "retry <story-id>",
		Short: "Rewind a failed story to the stage that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				processor := stories.NewProcessor(cfg, st, logger)
				story, err := processor.Retry(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Story %s reset to %s\n", story.ID, story.Status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reset a permanently failed story back to crawled")
	return cmd
}
