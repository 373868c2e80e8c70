package newsnlp_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/newsnlp"
	"github.com/aristath/sentinel/internal/workers"
)

type stubSentiment struct{}

func (stubSentiment) Analyze(ctx context.Context, a newsnlp.Article) (domain.NewsSentiment, error) {
	label := "positive"
	if a.Title == "bad" {
		label = "negative"
	}
	return domain.NewsSentiment{Label: label}, nil
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

func TestAnalyzeArticlesSummarizesSentiment(t *testing.T) {
	pool := workers.NewPool(2)
	c := newsnlp.NewCoordinator(stubSentiment{}, stubNER{}, stubImpact{}, stubKeyword{}, pool, zerolog.Nop())

	report, err := c.AnalyzeArticles(context.Background(), []newsnlp.Article{{Title: "good"}, {Title: "good"}, {Title: "bad"}})
	require.NoError(t, err)
	require.Len(t, report.Articles, 3)
	assert.Contains(t, report.Summary, "leaning bullish")
}

// warmupModel implements newsnlp.Warmup on top of stubSentiment so Preload
// has something to fan out to.
type warmupModel struct {
	stubSentiment
	calls *int64
	err   error
}

func (m warmupModel) Warmup(ctx context.Context) error {
	atomic.AddInt64(m.calls, 1)
	return m.err
}

func TestPreloadWarmsModelsThatImplementWarmup(t *testing.T) {
	pool := workers.NewPool(2)
	var calls int64
	c := newsnlp.NewCoordinator(warmupModel{calls: &calls}, stubNER{}, stubImpact{}, stubKeyword{}, pool, zerolog.Nop())

	require.NoError(t, c.Preload(context.Background()))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestPreloadSkipsModelsWithoutWarmup(t *testing.T) {
	pool := workers.NewPool(2)
	c := newsnlp.NewCoordinator(stubSentiment{}, stubNER{}, stubImpact{}, stubKeyword{}, pool, zerolog.Nop())
	assert.NoError(t, c.Preload(context.Background()))
}

func TestPreloadPropagatesWarmupFailure(t *testing.T) {
	pool := workers.NewPool(2)
	var calls int64
	boom := errors.New("boom")
	c := newsnlp.NewCoordinator(warmupModel{calls: &calls, err: boom}, stubNER{}, stubImpact{}, stubKeyword{}, pool, zerolog.Nop())

	err := c.Preload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
