// Package handlers exposes the backtest preparation surface: trigger a
// preparation run for a ticker and poll its status.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/backtest"
)

// Handler serves the backtest context-manager HTTP surface.
type Handler struct {
	manager *backtest.Manager
	fetch   backtest.OHLCVFetcher
	client  backtest.JobClient
	load    backtest.ReportLoader
	pollInterval time.Duration
	pollDeadline time.Duration
	log     zerolog.Logger
}

// NewHandler creates a backtest handler bound to manager and its
// collaborators.
func NewHandler(manager *backtest.Manager, fetch backtest.OHLCVFetcher, client backtest.JobClient, load backtest.ReportLoader, pollInterval, pollDeadline time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		manager: manager, fetch: fetch, client: client, load: load,
		pollInterval: pollInterval, pollDeadline: pollDeadline,
		log: log.With().Str("handler", "backtest").Logger(),
	}
}

// RegisterRoutes mounts this handler's routes under r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/backtest", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/check/{ticker}", h.HandleCheck)
	})
}

type generateRequest struct {
	Ticker          string  `json:"ticker"`
	BacktestDatesTS []int64 `json:"backtest_dates_ts"`
}

// HandleGenerate handles POST /v1/backtest/generate: starts (or reuses)
// the ticker's backtest preparation context in the background.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if c, ok := h.manager.Get(req.Ticker); ok && c.Status() != backtest.StatusFailed {
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{"job_id": req.Ticker, "status": string(c.Status())})
		return
	}

	go func() {
		ctx := context.Background()
		_ = h.manager.PrepareAll(ctx, []string{req.Ticker}, h.fetch, h.client, h.load, h.pollInterval, h.pollDeadline)
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": req.Ticker, "status": "PREPARING"})
}

// HandleCheck handles GET /v1/backtest/check/{ticker}.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	c, ok := h.manager.Get(ticker)
	if !ok {
		http.Error(w, "no backtest job for ticker", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"job_id": ticker, "status": string(c.Status())})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}
