package stories_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyreel/internal/logging"
	"storyreel/internal/stories"
	"storyreel/internal/store"
	"storyreel/internal/testsupport"
)

const crawlListing = `{
	"data": {
		"children": [
			{"data": {"id": "c1", "title": "TIFU by shipping a schema migration on a Friday afternoon", "author": "alice", "permalink": "/r/tifu/comments/c1/", "selftext": "the long story", "stickied": false}},
			{"data": {"id": "c2", "title": "TIFU by shipping a schema migration on a Friday afternoon again", "author": "bob", "permalink": "/r/tifu/comments/c2/", "selftext": "same story reposted", "stickied": false}},
			{"data": {"id": "c3", "title": "TIFU by adopting a parrot that only speaks in error codes", "author": "carol", "permalink": "/r/tifu/comments/c3/", "selftext": "another story", "stickied": false}},
			{"data": {"id": "c4", "title": "NSFW confession", "author": "dave", "permalink": "/r/tifu/comments/c4/", "selftext": "body", "over_18": true, "stickied": false}}
		]
	}
}`

func TestCrawlIngestsAndDeduplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(crawlListing))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Reddit.BaseURL = server.URL
	st := testsupport.MustOpenStore(t, cfg)
	crawler := stories.NewCrawler(cfg, st, logging.NewNop())
	ctx := context.Background()

	result, err := crawler.Crawl(ctx)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if result.Fetched != 4 {
		t.Errorf("fetched = %d, want 4", result.Fetched)
	}
	if result.Ingested != 2 {
		t.Errorf("ingested = %d, want 2 (repost and nsfw skipped): %#v", result.Ingested, result)
	}
	if result.NearDuplicates != 1 {
		t.Errorf("near duplicates = %d, want 1", result.NearDuplicates)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}

	ingested, err := st.Stories(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("Stories: %v", err)
	}
	if len(ingested) != 2 {
		t.Fatalf("store holds %d stories, want 2", len(ingested))
	}
	for _, story := range ingested {
		if story.Status != store.StatusCrawled {
			t.Errorf("story %s status = %s, want crawled", story.ID, story.Status)
		}
	}

	// A second crawl of the same listing ingests nothing new.
	second, err := crawler.Crawl(ctx)
	if err != nil {
		t.Fatalf("second Crawl: %v", err)
	}
	if second.Ingested != 0 {
		t.Errorf("second crawl ingested = %d, want 0", second.Ingested)
	}
	if second.Duplicates+second.NearDuplicates != 3 {
		t.Errorf("second crawl dedupe counts = %#v", second)
	}
}
