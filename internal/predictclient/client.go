// Package predictclient is the HTTP client for the external ML inference
// service: the model serialization format and its runtime are out of this
// service's scope (per spec.md), so prediction and SHAP explanation are
// both delegated to a remote endpoint over plain HTTP, mirroring this
// repo's other thin external-service clients (backtest, newssource,
// nlpmodels).
package predictclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/forecasting"
)

const requestTimeout = 30 * time.Second

// Client implements forecasting.Predictor against a remote inference
// service. Kernels it is handed must be string model identifiers, which
// is what this service's artifactstore-backed modelcache.Handle values
// carry as MainKernel/Snapshot.Kernel.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a predict client rooted at baseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.With().Str("component", "predictclient.Client").Logger(),
	}
}

type predictRequest struct {
	ModelID   string             `json:"model_id"`
	Timestamp int64              `json:"timestamp"`
	BasePrice float64            `json:"base_price"`
	Features  map[string]float64 `json:"features"`
}

type predictResponse struct {
	Prediction []float64 `json:"prediction"`
}

// Predict implements forecasting.Predictor.
func (c *Client) Predict(ctx context.Context, kernel interface{}, row forecasting.FeaturesRow) ([]float64, error) {
	modelID, ok := kernel.(string)
	if !ok {
		return nil, fmt.Errorf("predictclient: kernel is %T, want string model id", kernel)
	}

	body, err := json.Marshal(predictRequest{ModelID: modelID, Timestamp: row.Timestamp, BasePrice: row.BasePrice, Features: row.Features})
	if err != nil {
		return nil, fmt.Errorf("predictclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("predictclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictclient: call predict for model %q: %w", modelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictclient: unexpected status %d for model %q", resp.StatusCode, modelID)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("predictclient: decode response for model %q: %w", modelID, err)
	}
	return parsed.Prediction, nil
}

type explainRequest struct {
	ModelID   string             `json:"model_id"`
	Timestamp int64              `json:"timestamp"`
	BasePrice float64            `json:"base_price"`
	Features  map[string]float64 `json:"features"`
}

type explainResponse struct {
	Evidence []domain.Evidence `json:"evidence"`
}

// explainer implements forecasting.Explainer, bound to one model ID.
type explainer struct {
	modelID string
	client  *Client
}

func (e explainer) Explain(ctx context.Context, row forecasting.FeaturesRow) ([]domain.Evidence, error) {
	body, err := json.Marshal(explainRequest{ModelID: e.modelID, Timestamp: row.Timestamp, BasePrice: row.BasePrice, Features: row.Features})
	if err != nil {
		return nil, fmt.Errorf("predictclient: encode explain request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.client.baseURL+"/explain", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("predictclient: build explain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictclient: call explain for model %q: %w", e.modelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictclient: unexpected explain status %d for model %q", resp.StatusCode, e.modelID)
	}

	var parsed explainResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("predictclient: decode explain response for model %q: %w", e.modelID, err)
	}
	return parsed.Evidence, nil
}

// NewExplainerFactory builds a forecasting.ExplainerFactory bound to c,
// expecting kernel to be the same string model ID convention Predict uses.
func (c *Client) NewExplainerFactory() forecasting.ExplainerFactory {
	return func(ctx context.Context, kernel interface{}) (forecasting.Explainer, error) {
		modelID, ok := kernel.(string)
		if !ok {
			return nil, fmt.Errorf("predictclient: kernel is %T, want string model id", kernel)
		}
		return explainer{modelID: modelID, client: c}, nil
	}
}
