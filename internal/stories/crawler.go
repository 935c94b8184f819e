package stories

import (
	"context"
	"errors"
	"log/slog"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services/reddit"
	"storyreel/internal/store"
	"storyreel/internal/textutil"
)

// nearDuplicateThreshold is the title similarity above which a post is
// treated as a repost of an already-ingested story.
const nearDuplicateThreshold = 0.9

// Crawler ingests subreddit posts as crawled stories.
type Crawler struct {
	cfg    *config.Config
	store  *store.Store
	client *reddit.Client
	logger *slog.Logger
}

// NewCrawler builds a crawler from configuration.
func NewCrawler(cfg *config.Config, st *store.Store, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:    cfg,
		store:  st,
		client: reddit.NewClient(cfg),
		logger: logging.NewComponentLogger(logger, "crawler"),
	}
}

// CrawlResult summarizes one crawl pass.
type CrawlResult struct {
	Fetched        int
	Ingested       int
	Duplicates     int
	NearDuplicates int
	Skipped        int
}

// Crawl fetches the configured subreddit listing and creates a crawled story
// for each new post. Posts already in the store are skipped by ID, and posts
// whose titles closely match an existing story are skipped as reposts.
func (c *Crawler) Crawl(ctx context.Context) (CrawlResult, error) {
	var result CrawlResult

	posts, err := c.client.TopPosts(ctx, c.cfg.Reddit.Subreddit, c.cfg.Reddit.Limit)
	if err != nil {
		return result, err
	}
	result.Fetched = len(posts)

	fingerprints, err := c.existingFingerprints(ctx)
	if err != nil {
		return result, err
	}

	for _, post := range posts {
		if post.Over18 {
			result.Skipped++
			continue
		}
		fp := textutil.NewFingerprint(post.Title)
		if isNearDuplicate(fp, fingerprints) {
			result.NearDuplicates++
			c.logger.Debug("skipping repost", logging.String(logging.FieldStoryID, post.ID), logging.String("title", post.Title))
			continue
		}

		story := post.Story(c.cfg.Reddit.Subreddit)
		switch err := c.store.Create(ctx, story); {
		case err == nil:
			result.Ingested++
			if fp != nil {
				fingerprints = append(fingerprints, fp)
			}
			c.logger.Info("story ingested",
				logging.String(logging.FieldStoryID, story.ID),
				logging.String("title", story.Title),
				logging.String("subreddit", story.Subreddit))
		case errors.Is(err, store.ErrDuplicate):
			result.Duplicates++
		default:
			return result, err
		}
	}

	c.logger.Info("crawl complete",
		logging.Int("fetched", result.Fetched),
		logging.Int("ingested", result.Ingested),
		logging.Int("duplicates", result.Duplicates),
		logging.Int("near_duplicates", result.NearDuplicates),
		logging.Int("skipped", result.Skipped))
	return result, nil
}

func (c *Crawler) existingFingerprints(ctx context.Context) ([]*textutil.Fingerprint, error) {
	var fingerprints []*textutil.Fingerprint
	for story, err := range c.store.List(ctx, store.ListFilter{}) {
		if err != nil {
			return nil, err
		}
		if fp := textutil.NewFingerprint(story.Title); fp != nil {
			fingerprints = append(fingerprints, fp)
		}
	}
	return fingerprints, nil
}

func isNearDuplicate(fp *textutil.Fingerprint, existing []*textutil.Fingerprint) bool {
	if fp == nil {
		return false
	}
	for _, other := range existing {
		if textutil.CosineSimilarity(fp, other) >= nearDuplicateThreshold {
			return true
		}
	}
	return false
}
