package nlpmodels_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/newsnlp"
	"github.com/aristath/sentinel/internal/nlpmodels"
)

func TestSentimentModelAnalyzeDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"positive","score":0.9}`))
	}))
	defer srv.Close()

	c := nlpmodels.NewClient(srv.URL, zerolog.Nop())
	out, err := c.Sentiment().Analyze(context.Background(), newsnlp.Article{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "positive", out.Label)
	require.NotNil(t, out.Score)
	assert.Equal(t, 0.9, *out.Score)
}

func TestImpactModelAnalyzeDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/impact", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"level":"high","matched_keywords":["merger"]}`))
	}))
	defer srv.Close()

	c := nlpmodels.NewClient(srv.URL, zerolog.Nop())
	out, err := c.Impact().Analyze(context.Background(), newsnlp.Article{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.EqualValues(t, "high", out.Level)
	assert.Equal(t, []string{"merger"}, out.MatchedKeywords)
}

func TestNERModelAnalyzeNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := nlpmodels.NewClient(srv.URL, zerolog.Nop())
	_, err := c.NER().Analyze(context.Background(), newsnlp.Article{})
	require.Error(t, err)
}

func TestClientWarmupChecksHealthEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := nlpmodels.NewClient(srv.URL, zerolog.Nop())
	require.NoError(t, c.Sentiment().Warmup(context.Background()))
	assert.Equal(t, "/healthz", path)
}

func TestClientWarmupNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := nlpmodels.NewClient(srv.URL, zerolog.Nop())
	require.Error(t, c.NER().Warmup(context.Background()))
}
