package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/aggregation"
	"github.com/aristath/sentinel/internal/apperrors"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/forecasting"
	"github.com/aristath/sentinel/internal/modelcache"
	"github.com/aristath/sentinel/internal/modules/technical"
	"github.com/aristath/sentinel/internal/newsnlp"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/rules"
	"github.com/aristath/sentinel/internal/workers"
)

type stubMetadata struct{ exists bool }

func (s stubMetadata) Exists(ctx context.Context, ticker string) (bool, error) { return s.exists, nil }
func (s stubMetadata) Sector(ctx context.Context, ticker string) (string, error) {
	return "TECH", nil
}

type stubOHLCV struct{}

func (stubOHLCV) Daily(ctx context.Context, ticker string) ([]technical.Bar, error) {
	return []technical.Bar{{Close: 100}, {Close: 101}}, nil
}
func (stubOHLCV) Intraday(ctx context.Context, ticker string) ([]technical.Bar, error) {
	return []technical.Bar{{Close: 100.5}}, nil
}

type stubTech struct{}

func (stubTech) Analyze(ctx context.Context, ticker string, daily, intraday []technical.Bar, scope orchestrator.Scope) (*domain.TechnicalReport, error) {
	return &domain.TechnicalReport{}, nil
}

type stubNewsSource struct{}

func (stubNewsSource) Articles(ctx context.Context, ticker string) ([]newsnlp.Article, error) {
	return nil, nil
}

type stubSentiment struct{}

func (stubSentiment) Analyze(ctx context.Context, a newsnlp.Article) (domain.NewsSentiment, error) {
	return domain.NewsSentiment{}, nil
}

type stubNER struct{}

func (stubNER) Analyze(ctx context.Context, a newsnlp.Article) (domain.NER, error) {
	return domain.NER{}, nil
}

type stubImpact struct{}

func (stubImpact) Analyze(ctx context.Context, a newsnlp.Article) (domain.Impact, error) {
	return domain.Impact{}, nil
}

type stubKeyword struct{}

func (stubKeyword) Analyze(ctx context.Context, a newsnlp.Article) (domain.KeywordEvidence, error) {
	return domain.KeywordEvidence{}, nil
}

type stubPredictor struct{ err error }

func (s stubPredictor) Predict(ctx context.Context, kernel interface{}, row forecasting.FeaturesRow) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float64{0.1}, nil
}

type stubExplainer struct{}

func (stubExplainer) Explain(ctx context.Context, row forecasting.FeaturesRow) ([]domain.Evidence, error) {
	return nil, nil
}

type stubRuleProvider struct{}

func (stubRuleProvider) RulesFor(purpose rules.SemanticType) []*rules.Rule { return nil }

func buildOrchestrator(t *testing.T, predictErr error) *orchestrator.Orchestrator {
	t.Helper()
	log := zerolog.Nop()
	cache := modelcache.New(log)
	templates := []forecasting.TaskTemplate{{ProblemID: "clf-triple-barrier", Metadata: domain.TaskMetadata{}, Units: domain.UnitsCategory}}
	loader := func(ctx context.Context, taskID string) (*modelcache.Handle, error) {
		return &modelcache.Handle{TaskID: taskID, MainKernel: "kernel"}, nil
	}
	forecaster := forecasting.NewCoordinator(cache, loader, stubPredictor{err: predictErr}, func(ctx context.Context, kernel interface{}) (forecasting.Explainer, error) {
		return stubExplainer{}, nil
	}, templates, log)

	pool := workers.NewPool(2)
	newsCoord := newsnlp.NewCoordinator(stubSentiment{}, stubNER{}, stubImpact{}, stubKeyword{}, pool, log)

	return orchestrator.New(orchestrator.Deps{
		Metadata:    stubMetadata{exists: true},
		OHLCV:       stubOHLCV{},
		Tech:        stubTech{},
		Forecaster:  forecaster,
		News:        newsCoord,
		NewsSource:  stubNewsSource{},
		RuleRuntime: stubRuleProvider{},
		Aggregator:  aggregation.NewAggregator(aggregation.NewDefaultMapper()),
		Sectors:     []string{"TECH"},
	}, log)
}

// Scenario A: warm-up gate.
func TestFullAnalysisBeforePreloadReturnsServiceNotReady(t *testing.T) {
	o := buildOrchestrator(t, nil)
	_, err := o.FullAnalysis(context.Background(), "ABC", "medium", orchestrator.ScopeAll)
	require.Error(t, err)
	var notReady *apperrors.ServiceNotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, "Service is not ready", err.Error())
}

// Scenario B: fan-in partial failure.
func TestFullAnalysisForecastingFailureReturnsMissingReport(t *testing.T) {
	o := buildOrchestrator(t, errors.New("boom"))
	require.NoError(t, o.PreloadAll(context.Background()))

	_, err := o.FullAnalysis(context.Background(), "ABC", "medium", orchestrator.ScopeAll)
	require.Error(t, err)
	var missing *apperrors.MissingReportError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, err.Error(), "Forecasting module failed")
}

func TestFullAnalysisUnknownTickerReturnsNoData(t *testing.T) {
	o := buildOrchestrator(t, nil)
	require.NoError(t, o.PreloadAll(context.Background()))

	unknown := orchestrator.New(orchestrator.Deps{
		Metadata:    stubMetadata{exists: false},
		OHLCV:       stubOHLCV{},
		Tech:        stubTech{},
		NewsSource:  stubNewsSource{},
		RuleRuntime: stubRuleProvider{},
		Aggregator:  aggregation.NewAggregator(aggregation.NewDefaultMapper()),
		Sectors:     nil,
	}, zerolog.Nop())
	require.NoError(t, unknown.PreloadAll(context.Background()))

	_, err := unknown.FullAnalysis(context.Background(), "ZZZ", "medium", orchestrator.ScopeAll)
	require.Error(t, err)
	var noData *apperrors.NoDataError
	assert.True(t, errors.As(err, &noData))
}
