package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/apperrors"
)

const requestTimeout = 30 * time.Second

// generateRequest is the POST /backtest/generate payload.
type generateRequest struct {
	Ticker     string  `json:"ticker"`
	Timestamps []int64 `json:"timestamps"`
}

// jobResponse is the shared shape of both the generate and check
// endpoints' responses.
type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HTTPClient is the JobClient backed by the external backtest job
// service: a stateless job-queue HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPClient builds an HTTPClient pointed at baseURL (e.g.
// "http://backtest-jobs.internal").
func NewHTTPClient(baseURL string, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With().Str("component", "backtest.HTTPClient").Logger(),
	}
}

// Generate submits a new report-generation job for ticker at the given
// timestamps. A 409 response (a job for this ticker is already running)
// is treated the same as any other successful submission: the service
// returns the existing job_id.
func (c *HTTPClient) Generate(ctx context.Context, ticker string, timestamps []int64) (string, error) {
	body, err := json.Marshal(generateRequest{Ticker: ticker, Timestamps: timestamps})
	if err != nil {
		return "", fmt.Errorf("backtest: marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/backtest/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("backtest: build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doJob(req)
	if err != nil {
		return "", &apperrors.BacktestUpstreamError{Cause: err}
	}
	return resp.JobID, nil
}

// Check reports a submitted job's current status.
func (c *HTTPClient) Check(ctx context.Context, jobID string) (JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/backtest/check/"+jobID, nil)
	if err != nil {
		return "", fmt.Errorf("backtest: build check request: %w", err)
	}

	resp, err := c.doJob(req)
	if err != nil {
		return "", &apperrors.BacktestUpstreamError{Cause: err}
	}
	return JobStatus(resp.Status), nil
}

func (c *HTTPClient) doJob(req *http.Request) (jobResponse, error) {
	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("calling backtest job service")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jobResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return jobResponse{}, fmt.Errorf("backtest job service error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var out jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return jobResponse{}, fmt.Errorf("decode backtest job response: %w", err)
	}
	return out, nil
}
