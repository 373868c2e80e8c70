// Package newssource provides a client for an external news-article feed.
// Article retrieval and ingestion is out of this service's scope; this
// client only fetches whatever articles the upstream feed already has for
// a ticker.
package newssource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/newsnlp"
)

const requestTimeout = 30 * time.Second

// Client fetches recent articles for a ticker from an external feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a news-feed client rooted at baseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("component", "newssource.Client").Logger(),
	}
}

type articleResponse struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Articles implements orchestrator.NewsSource.
func (c *Client) Articles(ctx context.Context, ticker string) ([]newsnlp.Article, error) {
	endpoint := fmt.Sprintf("%s/articles?ticker=%s", c.baseURL, url.QueryEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("newssource: build request for %q: %w", ticker, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newssource: fetch articles for %q: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newssource: unexpected status %d for %q", resp.StatusCode, ticker)
	}

	var parsed []articleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("newssource: decode articles for %q: %w", ticker, err)
	}

	out := make([]newsnlp.Article, len(parsed))
	for i, a := range parsed {
		out[i] = newsnlp.Article{Title: a.Title, Body: a.Body}
	}
	return out, nil
}
