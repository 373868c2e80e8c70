// Package orchestrator serves one request lifecycle for full_analysis and
// full_advisor: it fans out the technical, forecasting, and news modules,
// unifies partial failures, and gates every serving endpoint on a one-shot
// warm-up event.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/sentinel/internal/aggregation"
	"github.com/aristath/sentinel/internal/apperrors"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/forecasting"
	"github.com/aristath/sentinel/internal/modules/technical"
	"github.com/aristath/sentinel/internal/newsnlp"
	"github.com/aristath/sentinel/internal/rules"
)

// Scope selects which technical sub-reports full_analysis computes.
type Scope string

const (
	ScopeDaily    Scope = "daily"
	ScopeIntraday Scope = "intraday"
	ScopeAll      Scope = "all"
)

// Metadata resolves whether a ticker exists and its sector, used for
// NO_DATA checks and forecasting cache keys.
type Metadata interface {
	Exists(ctx context.Context, ticker string) (bool, error)
	Sector(ctx context.Context, ticker string) (string, error)
}

// OHLCVProvider fetches daily/intraday bars for a ticker.
type OHLCVProvider interface {
	Daily(ctx context.Context, ticker string) ([]technical.Bar, error)
	Intraday(ctx context.Context, ticker string) ([]technical.Bar, error)
}

// TechAnalyzer produces the technical report for a ticker from its OHLCV
// history. The concrete indicator/pattern-recognition math is an external
// collaborator out of this runtime's scope.
type TechAnalyzer interface {
	Analyze(ctx context.Context, ticker string, daily, intraday []technical.Bar, scope Scope) (*domain.TechnicalReport, error)
}

// ProfileStore resolves the external user-profile collaborator.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
}

// RuleProvider returns the READY+EVOLVING rules for one semantic purpose.
type RuleProvider interface {
	RulesFor(purpose rules.SemanticType) []*rules.Rule
}

// NewsSource supplies the raw articles to analyze for a ticker.
type NewsSource interface {
	Articles(ctx context.Context, ticker string) ([]newsnlp.Article, error)
}

// Orchestrator wires the three analysis leaves, the rule runtime, and the
// warm-up event together behind full_analysis/full_advisor/preload_all.
type Orchestrator struct {
	metadata    Metadata
	ohlcv       OHLCVProvider
	tech        TechAnalyzer
	forecaster  *forecasting.Coordinator
	news        *newsnlp.Coordinator
	newsSource  NewsSource
	profiles    ProfileStore
	ruleRuntime RuleProvider
	aggregator  *aggregation.Aggregator
	sectors     []string

	warmupMu   sync.RWMutex
	warmedUp   bool
	warmupErr  error

	log zerolog.Logger
}

// Deps bundles every external collaborator the orchestrator fans out to.
type Deps struct {
	Metadata     Metadata
	OHLCV        OHLCVProvider
	Tech         TechAnalyzer
	Forecaster   *forecasting.Coordinator
	News         *newsnlp.Coordinator
	NewsSource   NewsSource
	Profiles     ProfileStore
	RuleRuntime  RuleProvider
	Aggregator   *aggregation.Aggregator
	Sectors      []string
}

// New builds an Orchestrator. The warm-up event starts unset; callers must
// invoke PreloadAll (directly or via a scheduler) before serving requests.
func New(d Deps, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		metadata:    d.Metadata,
		ohlcv:       d.OHLCV,
		tech:        d.Tech,
		forecaster:  d.Forecaster,
		news:        d.News,
		newsSource:  d.NewsSource,
		profiles:    d.Profiles,
		ruleRuntime: d.RuleRuntime,
		aggregator:  d.Aggregator,
		sectors:     d.Sectors,
		log:         log.With().Str("component", "orchestrator.Orchestrator").Logger(),
	}
}

// Ready reports whether the warm-up event has been set.
func (o *Orchestrator) Ready() bool {
	o.warmupMu.RLock()
	defer o.warmupMu.RUnlock()
	return o.warmedUp
}

// PreloadAll pre-warms the forecasting cache for every sector and the
// news NLP cache; it sets the warm-up event only if every subtask
// succeeds. It is idempotent and safe to call repeatedly: a failed
// attempt does not block subsequent retries, and a successful attempt is
// a no-op thereafter.
func (o *Orchestrator) PreloadAll(ctx context.Context) error {
	if o.Ready() {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.forecaster.PreloadForSectors(gctx, o.sectors); err != nil {
			return &apperrors.PreloadFailedError{Module: "forecasting", Elements: o.sectors, Cause: err}
		}
		return nil
	})
	if o.news != nil {
		g.Go(func() error {
			if err := o.news.Preload(gctx); err != nil {
				return &apperrors.PreloadFailedError{Module: "news", Cause: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.warmupMu.Lock()
		o.warmupErr = err
		o.warmupMu.Unlock()
		o.log.Error().Err(err).Msg("preload_all failed, warm-up event remains unset")
		return err
	}

	o.warmupMu.Lock()
	o.warmedUp = true
	o.warmupErr = nil
	o.warmupMu.Unlock()
	o.log.Info().Msg("preload_all succeeded, warm-up event set")
	return nil
}

// FullAnalysis fans out technical, forecasting, and news analysis for
// ticker and assembles them into one AnalysisReport, enforcing "collect
// all, raise if any" semantics.
func (o *Orchestrator) FullAnalysis(ctx context.Context, ticker string, profile string, scope Scope) (*domain.AnalysisReport, error) {
	if !o.Ready() {
		return nil, &apperrors.ServiceNotReadyError{}
	}

	exists, err := o.metadata.Exists(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: metadata lookup for %s: %w", ticker, err)
	}
	if !exists {
		return nil, &apperrors.NoDataError{Ticker: ticker}
	}

	daily, err := o.ohlcv.Daily(ctx, ticker)
	if err != nil {
		return nil, &apperrors.NoDataError{Ticker: ticker}
	}

	var intraday []technical.Bar
	if scope != ScopeDaily {
		intraday, err = o.ohlcv.Intraday(ctx, ticker)
		if err != nil {
			return nil, &apperrors.NoDataError{Ticker: ticker}
		}
	}

	sector, err := o.metadata.Sector(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: sector lookup for %s: %w", ticker, err)
	}

	var techReport *domain.TechnicalReport
	var forecastReport *domain.ForecastingReport
	var newsReport *domain.NewsReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.tech.Analyze(gctx, ticker, daily, intraday, scope)
		if err != nil {
			return &apperrors.MissingReportError{Module: "Technical", Cause: err}
		}
		techReport = r
		return nil
	})
	g.Go(func() error {
		basePrice := 0.0
		ts := time.Now().Unix()
		if len(daily) > 0 {
			basePrice = daily[len(daily)-1].Close
			ts = daily[len(daily)-1].Time.Unix()
		}
		row := forecasting.FeaturesRow{Timestamp: ts, BasePrice: basePrice, Features: featuresFromBars(daily)}
		r, err := o.forecaster.GenerateReport(gctx, row, ticker, sector)
		if err != nil {
			return &apperrors.MissingReportError{Module: "Forecasting", Cause: err}
		}
		forecastReport = r
		return nil
	})
	g.Go(func() error {
		articles, err := o.newsSource.Articles(gctx, ticker)
		if err != nil {
			return &apperrors.MissingReportError{Module: "News", Cause: err}
		}
		r, err := o.news.AnalyzeArticles(gctx, articles)
		if err != nil {
			return &apperrors.MissingReportError{Module: "News", Cause: err}
		}
		newsReport = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.AnalysisReport{
		Ticker:      ticker,
		GeneratedAt: now,
		GeneratedTS: now.Unix(),
		Technical:   techReport,
		Forecasting: forecastReport,
		News:        newsReport,
	}
	sanitizeReport(report)
	return report, nil
}

// FullAdvisor builds the advisory recommendation for (ticker, userID): a
// medium/all analysis, followed by parallel evaluation of the three rule
// purposes and their aggregation.
func (o *Orchestrator) FullAdvisor(ctx context.Context, ticker, userID string) (*domain.AdvisorReport, error) {
	report, err := o.FullAnalysis(ctx, ticker, "medium", ScopeAll)
	if err != nil {
		return nil, err
	}

	profile, err := o.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: profile lookup for %s: %w", userID, err)
	}

	var decisionScores, riskScores, opportunityScores []float64
	var decisionTriggered, riskTriggered, opportunityTriggered []domain.TriggeredRuleInfo
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		scores, triggered := evaluateRules(o.ruleRuntime.RulesFor(rules.DECISION_SIGNAL), report)
		mu.Lock()
		decisionScores, decisionTriggered = scores, triggered
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		scores, triggered := evaluateRules(o.ruleRuntime.RulesFor(rules.RISK_LEVEL), report)
		mu.Lock()
		riskScores, riskTriggered = scores, triggered
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		scores, triggered := evaluateRules(o.ruleRuntime.RulesFor(rules.OPPORTUNITY_RATING), report)
		mu.Lock()
		opportunityScores, opportunityTriggered = scores, triggered
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	weights := weightsFromProfile(profile)
	agg := o.aggregator.AggregateRawScores(decisionScores, riskScores, opportunityScores)
	final := o.aggregator.SynthesizeFinalDecision(agg, weights)
	mapped := o.aggregator.MapFinalScores(final)

	now := time.Now().UTC()
	return &domain.AdvisorReport{
		Ticker: ticker,
		FinalDecision: domain.FinalRecommendation{
			FinalScore: final.Decision, Purpose: string(rules.DECISION_SIGNAL),
			Label: mapped.Decision.Label, Recommendation: mapped.Decision.Recommendation,
			TriggeredRules: decisionTriggered,
		},
		FinalRisk: domain.FinalRecommendation{
			FinalScore: final.Risk, Purpose: string(rules.RISK_LEVEL),
			Label: mapped.Risk.Label, Recommendation: mapped.Risk.Recommendation,
			TriggeredRules: riskTriggered,
		},
		FinalOpportunity: domain.FinalRecommendation{
			FinalScore: final.Opportunity, Purpose: string(rules.OPPORTUNITY_RATING),
			Label: mapped.Opportunity.Label, Recommendation: mapped.Opportunity.Recommendation,
			TriggeredRules: opportunityTriggered,
		},
		AggregatedScores:   agg,
		GeneratedAtUTC:     now.Format(time.RFC3339),
		GeneratedTimestamp: now.Unix(),
	}, nil
}

func weightsFromProfile(p domain.Profile) aggregation.Weights {
	w := aggregation.DefaultWeights()
	if v, ok := p.Weights["decision"]; ok {
		w.Decision = v
	}
	if v, ok := p.Weights["risk"]; ok {
		w.Risk = v
	}
	if v, ok := p.Weights["opportunity"]; ok {
		w.Opportunity = v
	}
	return w
}

func evaluateRules(rulesForPurpose []*rules.Rule, report *domain.AnalysisReport) ([]float64, []domain.TriggeredRuleInfo) {
	scores := make([]float64, 0, len(rulesForPurpose))
	triggered := make([]domain.TriggeredRuleInfo, 0, len(rulesForPurpose))
	for _, r := range rulesForPurpose {
		score := r.Execute(report)
		scores = append(scores, score)
		triggered = append(triggered, domain.TriggeredRuleInfo{RuleID: r.RuleID, RuleName: r.Name, RawScore: score})
	}
	return scores, triggered
}

func featuresFromBars(bars []technical.Bar) map[string]float64 {
	if len(bars) == 0 {
		return map[string]float64{}
	}
	ind := technical.Compute(bars)
	last := len(bars) - 1
	return map[string]float64{
		"rsi14":  ind.RSI14[last],
		"sma50":  ind.SMA50[last],
		"sma200": ind.SMA200[last],
		"close":  bars[last].Close,
	}
}

// sanitizeReport replaces non-finite values with null (nil pointers) in
// the pointer-typed float fields of report: technical KeyIndicators,
// forecast Prediction entries, Evidence BaseValue/PredictionOutcome,
// TopFeature Value/Contribution, and news sentiment Score. The plain
// float64 fields TrendView.Evidence, SRLevel.Level and Pattern.Score are
// not swept.
func sanitizeReport(report *domain.AnalysisReport) {
	sanitizeTechnical(report.Technical)
	sanitizeForecasting(report.Forecasting)
	sanitizeNews(report.News)
}

func sanitizeTechnical(t *domain.TechnicalReport) {
	if t == nil {
		return
	}
	sanitizeSubReport(t.Daily)
	sanitizeSubReport(t.Intraday)
}

func sanitizeSubReport(s *domain.TechnicalSubReport) {
	if s == nil {
		return
	}
	for k, v := range s.KeyIndicators {
		if v != nil && !isFinite(*v) {
			s.KeyIndicators[k] = nil
		}
	}
}

func sanitizeForecasting(f *domain.ForecastingReport) {
	if f == nil {
		return
	}
	for i := range f.Forecasts {
		for j, v := range f.Forecasts[i].Prediction {
			if v != nil && !isFinite(*v) {
				f.Forecasts[i].Prediction[j] = nil
			}
		}
		for k := range f.Forecasts[i].Evidence {
			sanitizeEvidence(&f.Forecasts[i].Evidence[k])
		}
	}
}

func sanitizeEvidence(e *domain.Evidence) {
	if e.BaseValue != nil && !isFinite(*e.BaseValue) {
		e.BaseValue = nil
	}
	if e.PredictionOutcome != nil && !isFinite(*e.PredictionOutcome) {
		e.PredictionOutcome = nil
	}
	for i := range e.TopFeatures {
		tf := &e.TopFeatures[i]
		if tf.Value != nil && !isFinite(*tf.Value) {
			tf.Value = nil
		}
		if tf.Contribution != nil && !isFinite(*tf.Contribution) {
			tf.Contribution = nil
		}
	}
}

func sanitizeNews(n *domain.NewsReport) {
	if n == nil {
		return
	}
	for i := range n.Articles {
		s := &n.Articles[i].Sentiment
		if s.Score != nil && !isFinite(*s.Score) {
			s.Score = nil
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
