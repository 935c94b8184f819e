package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var subredditFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				filter := store.ListFilter{Subreddit: subredditFlag}
				if statusFlag != "" {
					status, ok := store.ParseStatus(statusFlag)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFlag)
					}
					filter.Status = status
				}

				rows := make([][]string, 0, 16)
				for story, err := range st.List(cmd.Context(), filter) {
					if err != nil {
						return err
					}
					detail := ""
					if story.Status == store.StatusError || story.Status == store.StatusPermanentlyFailed {
						detail = truncate(story.ErrorMessage, 40)
					}
					rows = append(rows, []string{
						story.ID,
						string(story.Status),
						story.Subreddit,
						truncate(story.Title, 48),
						fmt.Sprintf("%d", story.RetryCount),
						detail,
					})
				}

				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No stories found")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "STATUS", "SUBREDDIT", "TITLE", "RETRIES", "ERROR"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status")
	cmd.Flags().StringVar(&subredditFlag, "subreddit", "", "Filter by subreddit")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <story-id>",
		Short: "Show one story in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				story, err := st.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", story.ID)
				fmt.Fprintf(out, "Title:     %s\n", story.Title)
				fmt.Fprintf(out, "Author:    %s\n", story.Author)
				fmt.Fprintf(out, "Subreddit: r/%s\n", story.Subreddit)
				fmt.Fprintf(out, "URL:       %s\n", story.URL)
				fmt.Fprintf(out, "Status:    %s\n", story.Status)
				fmt.Fprintf(out, "Created:   %s\n", story.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Updated:   %s\n", story.UpdatedAt.Format("2006-01-02 15:04:05"))

				if story.ScriptPath != "" {
					fmt.Fprintf(out, "Script:     %s\n", story.ScriptPath)
				}
				if story.AudioPath != "" {
					fmt.Fprintf(out, "Audio:      %s\n", story.AudioPath)
				}
				if story.TimestampsPath != "" {
					fmt.Fprintf(out, "Timestamps: %s\n", story.TimestampsPath)
				}
				if story.VideoPath != "" {
					fmt.Fprintf(out, "Video:      %s\n", story.VideoPath)
				}
				if story.ErrorStage != "" {
					fmt.Fprintf(out, "Failed stage: %s (retries: %d)\n", story.ErrorStage, story.RetryCount)
					fmt.Fprintf(out, "Error:        %s\n", story.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "delete <story-id>",
		Short: "Delete a story and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				id := args[0]
				story, err := st.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
				if !keepFiles {
					if err := os.RemoveAll(cfg.StoryDir(id)); err != nil {
						return fmt.Errorf("remove staging dir: %w", err)
					}
					if story.VideoPath != "" {
						if err := os.Remove(story.VideoPath); err != nil && !os.IsNotExist(err) {
							return fmt.Errorf("remove rendered video: %w", err)
						}
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted story %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep artifact files on disk")
	return cmd
}
