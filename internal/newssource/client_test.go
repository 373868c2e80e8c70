package newssource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/newssource"
)

func TestClientArticlesDecodesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("ticker"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"headline","body":"text"}]`))
	}))
	defer srv.Close()

	c := newssource.NewClient(srv.URL, zerolog.Nop())
	articles, err := c.Articles(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "headline", articles[0].Title)
}

func TestClientArticlesNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newssource.NewClient(srv.URL, zerolog.Nop())
	_, err := c.Articles(context.Background(), "AAPL")
	require.Error(t, err)
}
