// Package nlpmodels is the HTTP client for the external news NLP model
// service: sentiment, NER, impact, and keyword-evidence model weights and
// their runtime are out of this service's scope (per spec.md), so each of
// newsnlp's four leaf models is delegated to a remote endpoint over plain
// HTTP, mirroring this repo's other thin external-service clients
// (predictclient, newssource).
package nlpmodels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/newsnlp"
)

const requestTimeout = 30 * time.Second

// Client is a shared HTTP client rooted at one NLP model service, used to
// build the four model adapters newsnlp.Coordinator needs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an NLP model client rooted at baseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("component", "nlpmodels.Client").Logger(),
	}
}

type articleRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (c *Client) post(ctx context.Context, path string, a newsnlp.Article, out interface{}) error {
	body, err := json.Marshal(articleRequest{Title: a.Title, Body: a.Body})
	if err != nil {
		return fmt.Errorf("nlpmodels: encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nlpmodels: build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nlpmodels: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nlpmodels: unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nlpmodels: decode response from %s: %w", path, err)
	}
	return nil
}

// Warmup implements newsnlp.Warmup: it confirms the remote NLP model
// service is reachable before PreloadAll sets the warm-up event.
func (c *Client) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("nlpmodels: build warmup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nlpmodels: warmup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nlpmodels: warmup unexpected status %d", resp.StatusCode)
	}
	return nil
}

// SentimentModel implements newsnlp.SentimentModel.
type SentimentModel struct{ client *Client }

// Sentiment builds the sentiment leaf model adapter.
func (c *Client) Sentiment() SentimentModel { return SentimentModel{client: c} }

func (m SentimentModel) Analyze(ctx context.Context, a newsnlp.Article) (domain.NewsSentiment, error) {
	var out domain.NewsSentiment
	err := m.client.post(ctx, "/sentiment", a, &out)
	return out, err
}

// Warmup implements newsnlp.Warmup.
func (m SentimentModel) Warmup(ctx context.Context) error { return m.client.Warmup(ctx) }

// NERModel implements newsnlp.NERModel.
type NERModel struct{ client *Client }

// NER builds the named-entity-recognition leaf model adapter.
func (c *Client) NER() NERModel { return NERModel{client: c} }

func (m NERModel) Analyze(ctx context.Context, a newsnlp.Article) (domain.NER, error) {
	var out domain.NER
	err := m.client.post(ctx, "/ner", a, &out)
	return out, err
}

// Warmup implements newsnlp.Warmup.
func (m NERModel) Warmup(ctx context.Context) error { return m.client.Warmup(ctx) }

// ImpactModel implements newsnlp.ImpactModel.
type ImpactModel struct{ client *Client }

// Impact builds the impact leaf model adapter.
func (c *Client) Impact() ImpactModel { return ImpactModel{client: c} }

func (m ImpactModel) Analyze(ctx context.Context, a newsnlp.Article) (domain.Impact, error) {
	var out domain.Impact
	err := m.client.post(ctx, "/impact", a, &out)
	return out, err
}

// Warmup implements newsnlp.Warmup.
func (m ImpactModel) Warmup(ctx context.Context) error { return m.client.Warmup(ctx) }

// KeywordModel implements newsnlp.KeywordModel.
type KeywordModel struct{ client *Client }

// Keyword builds the keyword-evidence leaf model adapter.
func (c *Client) Keyword() KeywordModel { return KeywordModel{client: c} }

func (m KeywordModel) Analyze(ctx context.Context, a newsnlp.Article) (domain.KeywordEvidence, error) {
	var out domain.KeywordEvidence
	err := m.client.post(ctx, "/keywords", a, &out)
	return out, err
}

// Warmup implements newsnlp.Warmup.
func (m KeywordModel) Warmup(ctx context.Context) error { return m.client.Warmup(ctx) }
