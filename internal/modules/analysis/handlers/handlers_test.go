package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/aggregation"
	"github.com/aristath/sentinel/internal/apperrors"
	handlers "github.com/aristath/sentinel/internal/modules/analysis/handlers"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/rules"
)

type stubRuleLister struct {
	rules []*rules.Rule
	err   error
}

func (s stubRuleLister) List(ctx context.Context, purpose rules.SemanticType) ([]*rules.Rule, error) {
	return s.rules, s.err
}

func buildOrchestratorNotReady(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	return orchestrator.New(orchestrator.Deps{
		Aggregator: aggregation.NewAggregator(aggregation.NewDefaultMapper()),
	}, zerolog.Nop())
}

// Invariant: before pre-warm, the HTTP surface maps ServiceNotReadyError
// to its declared HTTP status rather than a generic 500.
func TestHandleFullAnalysisBeforePreloadReturnsDeclaredStatus(t *testing.T) {
	orch := buildOrchestratorNotReady(t)
	registry := rules.NewRegistry(zerolog.Nop())
	h := handlers.NewHandler(orch, registry, stubRuleLister{}, zerolog.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/analysis/ABC/full", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	notReady := &apperrors.ServiceNotReadyError{}
	assert.Equal(t, notReady.HTTPStatus(), rec.Code)
}

func TestHandleListRulesReturnsStoredRules(t *testing.T) {
	orch := buildOrchestratorNotReady(t)
	registry := rules.NewRegistry(zerolog.Nop())
	lister := stubRuleLister{rules: []*rules.Rule{
		{RuleID: "r1", Name: "n1", Purpose: rules.DECISION_SIGNAL, Status: rules.StatusReady},
	}}
	h := handlers.NewHandler(orch, registry, lister, zerolog.Nop())

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/rules/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r1"`)
}
