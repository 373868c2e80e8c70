// Package newsnlp runs the news NLP leaf models (sentiment, NER, impact,
// keyword evidence) in parallel across articles and assembles the overall
// news report.
package newsnlp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/workers"
)

// Article is one raw news item to analyze.
type Article struct {
	Title string
	Body  string
}

// SentimentModel, NERModel, ImpactModel, and KeywordModel are the four
// leaf NLP models this coordinator fans out across; their concrete
// weights/runtime are external collaborators out of this runtime's scope.
type SentimentModel interface {
	Analyze(ctx context.Context, a Article) (domain.NewsSentiment, error)
}
type NERModel interface {
	Analyze(ctx context.Context, a Article) (domain.NER, error)
}
type ImpactModel interface {
	Analyze(ctx context.Context, a Article) (domain.Impact, error)
}
type KeywordModel interface {
	Analyze(ctx context.Context, a Article) (domain.KeywordEvidence, error)
}

// Coordinator fans the four leaf models out across every article,
// offloading the CPU-bound forward passes to a worker pool.
type Coordinator struct {
	sentiment SentimentModel
	ner       NERModel
	impact    ImpactModel
	keyword   KeywordModel
	pool      *workers.Pool
	log       zerolog.Logger
}

// NewCoordinator builds a news NLP coordinator over the given leaf models.
func NewCoordinator(sentiment SentimentModel, ner NERModel, impact ImpactModel, keyword KeywordModel, pool *workers.Pool, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		sentiment: sentiment, ner: ner, impact: impact, keyword: keyword, pool: pool,
		log: log.With().Str("component", "newsnlp.Coordinator").Logger(),
	}
}

// Warmup is implemented by leaf models that need an explicit readiness
// check (e.g. confirming a remote model service is reachable) before
// PreloadAll can set the warm-up event. Models with no such step simply
// don't implement it and are skipped by Preload.
type Warmup interface {
	Warmup(ctx context.Context) error
}

// Preload pre-warms the news NLP cache: every leaf model that implements
// Warmup is checked concurrently. Models with no warm-up step are
// no-ops, matching the forecasting cache's PreloadForSectors gate.
func (c *Coordinator) Preload(ctx context.Context) error {
	models := []interface{}{c.sentiment, c.ner, c.impact, c.keyword}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range models {
		m := m
		w, ok := m.(Warmup)
		if !ok {
			continue
		}
		g.Go(func() error { return w.Warmup(gctx) })
	}
	return g.Wait()
}

type articleResult struct {
	report domain.ArticleReport
	err    error
}

// AnalyzeArticles runs every leaf model across every article and returns
// an aggregated NewsReport. Article-level work is offloaded to the
// worker pool; within one article, the four leaf models run concurrently.
func (c *Coordinator) AnalyzeArticles(ctx context.Context, articles []Article) (*domain.NewsReport, error) {
	results := workers.Run(c.pool, articles, func(a Article) articleResult {
		report, err := c.analyzeOne(ctx, a)
		return articleResult{report: report, err: err}
	}, nil)

	report := &domain.NewsReport{}
	bullish, bearish := 0, 0
	for _, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("newsnlp: %w", r.err)
		}
		report.Articles = append(report.Articles, r.report)
		switch r.report.Sentiment.Label {
		case "positive":
			bullish++
		case "negative":
			bearish++
		}
	}
	report.Summary = summarize(len(report.Articles), bullish, bearish)
	return report, nil
}

func (c *Coordinator) analyzeOne(ctx context.Context, a Article) (domain.ArticleReport, error) {
	var sentiment domain.NewsSentiment
	var ner domain.NER
	var impact domain.Impact
	var keyword domain.KeywordEvidence

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { sentiment, err = c.sentiment.Analyze(gctx, a); return })
	g.Go(func() (err error) { ner, err = c.ner.Analyze(gctx, a); return })
	g.Go(func() (err error) { impact, err = c.impact.Analyze(gctx, a); return })
	g.Go(func() (err error) { keyword, err = c.keyword.Analyze(gctx, a); return })
	if err := g.Wait(); err != nil {
		return domain.ArticleReport{}, err
	}

	return domain.ArticleReport{
		Title: a.Title, Sentiment: sentiment, NER: ner, Impact: impact, KeywordEvidence: keyword,
	}, nil
}

func summarize(total, bullish, bearish int) string {
	if total == 0 {
		return "No news available."
	}
	switch {
	case bullish > bearish:
		return fmt.Sprintf("%d articles analyzed, leaning bullish (%d positive, %d negative).", total, bullish, bearish)
	case bearish > bullish:
		return fmt.Sprintf("%d articles analyzed, leaning bearish (%d positive, %d negative).", total, bullish, bearish)
	default:
		return fmt.Sprintf("%d articles analyzed, sentiment mixed (%d positive, %d negative).", total, bullish, bearish)
	}
}
