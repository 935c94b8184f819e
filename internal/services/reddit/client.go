package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/services"
	"storyreel/internal/store"
)

// Post is a single story candidate returned by a subreddit listing.
type Post struct {
	ID          string
	Title       string
	Author      string
	Permalink   string
	Body        string
	UpvoteRatio float64
	Over18      bool
	Stickied    bool
}

// Client fetches story candidates from Reddit's public JSON listings.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient builds a Reddit listing client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Reddit.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.Reddit.BaseURL, "/"),
		userAgent: cfg.Reddit.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// listing mirrors the subset of Reddit's listing envelope the crawler needs.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Author      string  `json:"author"`
				Permalink   string  `json:"permalink"`
				SelfText    string  `json:"selftext"`
				UpvoteRatio float64 `json:"upvote_ratio"`
				Over18      bool    `json:"over_18"`
				Stickied    bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// TopPosts fetches the subreddit's current listing. Stickied posts and posts
// without body text are dropped since they cannot be narrated.
func (c *Client) TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if subreddit == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "crawl", "list subreddit", "subreddit name is empty", nil)
	}

	endpoint := fmt.Sprintf("%s/r/%s.json", c.baseURL, url.PathEscape(subreddit))
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "crawl", "list subreddit", "build listing request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrServiceUnavailable, "crawl", "list subreddit",
			fmt.Sprintf("fetch r/%s listing", subreddit), err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, subreddit); err != nil {
		return nil, err
	}

	var envelope listing
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, services.Wrap(services.ErrTransient, "crawl", "list subreddit", "decode listing response", err)
	}

	posts := make([]Post, 0, len(envelope.Data.Children))
	for _, child := range envelope.Data.Children {
		data := child.Data
		if data.Stickied || strings.TrimSpace(data.SelfText) == "" {
			continue
		}
		posts = append(posts, Post{
			ID:          data.ID,
			Title:       data.Title,
			Author:      data.Author,
			Permalink:   data.Permalink,
			Body:        data.SelfText,
			UpvoteRatio: data.UpvoteRatio,
			Over18:      data.Over18,
		})
	}
	return posts, nil
}

func classifyStatus(resp *http.Response, subreddit string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrQuotaExceeded, "crawl", "list subreddit",
			fmt.Sprintf("rate limited listing r/%s", subreddit), nil)
	case resp.StatusCode >= 500:
		return services.Wrap(services.ErrServiceUnavailable, "crawl", "list subreddit",
			fmt.Sprintf("reddit returned %d for r/%s", resp.StatusCode, subreddit), nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrInvalidInput, "crawl", "list subreddit",
			fmt.Sprintf("reddit returned %d for r/%s: %s", resp.StatusCode, subreddit, strings.TrimSpace(string(body))), nil)
	}
}

// Story converts a post into a crawled story record.
func (p Post) Story(subreddit string) *store.Story {
	return &store.Story{
		ID:        p.ID,
		Title:     p.Title,
		Author:    p.Author,
		Subreddit: strings.TrimPrefix(subreddit, "r/"),
		URL:       "https://www.reddit.com" + p.Permalink,
		Body:      p.Body,
		Status:    store.StatusCrawled,
	}
}
