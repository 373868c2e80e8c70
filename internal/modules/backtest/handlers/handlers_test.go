package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/backtest"
	"github.com/aristath/sentinel/internal/domain"
	handlers "github.com/aristath/sentinel/internal/modules/backtest/handlers"
	"github.com/aristath/sentinel/internal/modules/technical"
)

func fakeFetch(ctx context.Context, ticker string) ([]technical.Bar, error) {
	return []technical.Bar{{Close: 1}, {Close: 2}}, nil
}

func fakeLoad(ctx context.Context, ticker, jobID string) ([]*domain.AnalysisReport, error) {
	return []*domain.AnalysisReport{{Ticker: ticker}}, nil
}

type instantJobClient struct{}

func (instantJobClient) Generate(ctx context.Context, ticker string, ts []int64) (string, error) {
	return "job-" + ticker, nil
}
func (instantJobClient) Check(ctx context.Context, jobID string) (backtest.JobStatus, error) {
	return backtest.JobCompleted, nil
}

func buildHandler() *handlers.Handler {
	mgr := backtest.NewManager(2, backtest.DefaultSelectorConfig(), zerolog.Nop())
	return handlers.NewHandler(mgr, fakeFetch, instantJobClient{}, fakeLoad, time.Millisecond, time.Second, zerolog.Nop())
}

// Invariant: a first generate request for a ticker is accepted with 202.
func TestHandleGenerateAccepted(t *testing.T) {
	h := buildHandler()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	body, _ := json.Marshal(map[string]interface{}{"ticker": "AAA", "backtest_dates_ts": []int64{1, 2}})
	req := httptest.NewRequest(http.MethodPost, "/backtest/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
}

// Invariant: checking an unknown ticker returns 404.
func TestHandleCheckUnknownTickerNotFound(t *testing.T) {
	h := buildHandler()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/backtest/check/ZZZ", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
