package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/config"
	"storyreel/internal/stories"
	"storyreel/internal/store"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var subreddit string
	var limit int

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch new stories from reddit into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				if subreddit != "" {
					cfg.Reddit.Subreddit = subreddit
				}
				if limit > 0 {
					cfg.Reddit.Limit = limit
				}

				crawler := stories.NewCrawler(cfg, st, logger)
				result, err := crawler.Crawl(cmd.Context())
				if err != nil {
					return fmt.Errorf("crawl r/%s: %w", cfg.Reddit.Subreddit, err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Fetched %d posts from r/%s\n", result.Fetched, cfg.Reddit.Subreddit)
				fmt.Fprintf(out, "  ingested:        %d\n", result.Ingested)
				fmt.Fprintf(out, "  duplicates:      %d\n", result.Duplicates)
				fmt.Fprintf(out, "  near-duplicates: %d\n", result.NearDuplicates)
				fmt.Fprintf(out, "  skipped:         %d\n", result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&subreddit, "subreddit", "", "Subreddit to crawl (defaults to the configured one)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum posts to fetch")
	return cmd
}
