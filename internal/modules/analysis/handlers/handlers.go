// Package handlers provides HTTP handlers for the analysis and advisory
// surface: full/partial analysis reports, advisor recommendations, and
// rule registry introspection.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/apperrors"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/rules"
)

// RuleLister lists stored rules, optionally filtered by purpose. Satisfied
// by *rulestore.Store.
type RuleLister interface {
	List(ctx context.Context, purpose rules.SemanticType) ([]*rules.Rule, error)
}

// Handler serves the analysis and advisor HTTP surface.
type Handler struct {
	orch     *orchestrator.Orchestrator
	registry *rules.Registry
	ruleList RuleLister
	log      zerolog.Logger
}

// NewHandler creates an analysis/advisor handler.
func NewHandler(orch *orchestrator.Orchestrator, registry *rules.Registry, ruleList RuleLister, log zerolog.Logger) *Handler {
	return &Handler{orch: orch, registry: registry, ruleList: ruleList, log: log.With().Str("handler", "analysis").Logger()}
}

// RegisterRoutes mounts this handler's routes under r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis/{ticker}", func(r chi.Router) {
		r.Get("/full", h.HandleFullAnalysis)
		r.Get("/technical", h.HandleTechnical)
		r.Get("/forecasting", h.HandleForecasting)
		r.Get("/news", h.HandleNews)
	})
	r.Route("/advisor/{ticker}", func(r chi.Router) {
		r.Post("/full", h.HandleAdvisor)
	})
	r.Route("/rules", func(r chi.Router) {
		r.Get("/", h.HandleListRules)
		r.Get("/nodes", h.HandleListNodes)
	})
}

// HandleFullAnalysis handles GET /v1/analysis/{ticker}/full.
func (h *Handler) HandleFullAnalysis(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	profile := queryOr(r, "profile", "medium")
	scope := orchestrator.Scope(queryOr(r, "scope", "all"))

	report, err := h.orch.FullAnalysis(r.Context(), ticker, profile, scope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// HandleTechnical handles GET /v1/analysis/{ticker}/technical, the
// technical-only subsection of a full analysis.
func (h *Handler) HandleTechnical(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	report, err := h.orch.FullAnalysis(r.Context(), ticker, queryOr(r, "profile", "medium"), orchestrator.ScopeAll)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report.Technical)
}

// HandleForecasting handles GET /v1/analysis/{ticker}/forecasting.
func (h *Handler) HandleForecasting(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	report, err := h.orch.FullAnalysis(r.Context(), ticker, queryOr(r, "profile", "medium"), orchestrator.ScopeAll)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report.Forecasting)
}

// HandleNews handles GET /v1/analysis/{ticker}/news.
func (h *Handler) HandleNews(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	report, err := h.orch.FullAnalysis(r.Context(), ticker, queryOr(r, "profile", "medium"), orchestrator.ScopeAll)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report.News)
}

type advisorRequest struct {
	UserID  string             `json:"user_id"`
	Weights map[string]float64 `json:"weights"`
}

// HandleAdvisor handles POST /v1/advisor/{ticker}/full.
func (h *Handler) HandleAdvisor(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	var req advisorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.orch.FullAdvisor(r.Context(), ticker, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type ruleSummary struct {
	RuleID  string `json:"rule_id"`
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
	Status  string `json:"status"`
}

// HandleListRules handles GET /v1/rules?purpose=.
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	purpose := rules.SemanticType(r.URL.Query().Get("purpose"))

	stored, err := h.ruleList.List(r.Context(), purpose)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]ruleSummary, len(stored))
	for i, rule := range stored {
		out[i] = ruleSummary{RuleID: rule.RuleID, Name: rule.Name, Purpose: string(rule.Purpose), Status: string(rule.Status)}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": out})
}

type nodeSummary struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Kind        string             `json:"kind"`
	ReturnType  string             `json:"return_type"`
	ArgsType    []rules.SemanticType `json:"args_type,omitempty"`
}

// HandleListNodes handles GET /v1/rules/nodes?node_type=&purpose=.
func (h *Handler) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	kind := rules.NodeKind(r.URL.Query().Get("node_type"))
	purpose := rules.SemanticType(r.URL.Query().Get("purpose"))

	specs := h.registry.List(kind, purpose)
	out := make([]nodeSummary, len(specs))
	for i, s := range specs {
		out[i] = nodeSummary{Name: s.Name, Description: s.Description, Kind: string(s.Kind), ReturnType: string(s.ReturnType), ArgsType: s.ArgsType}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": out})
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	h.log.Warn().Err(err).Int("status", status).Msg("request failed")
	h.writeJSON(w, status, map[string]interface{}{"detail": fmt.Sprintf("%v", err)})
}
