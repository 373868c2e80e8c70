package profilestore_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/profilestore"
)

func TestGetReturnsDefaultForUnknownUser(t *testing.T) {
	store, err := profilestore.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	profile, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.UserID)
	assert.Equal(t, "medium", profile.Horizon)
	assert.Equal(t, 1.0, profile.Weights["decision"])
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	store, err := profilestore.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	want := domain.Profile{UserID: "bob", Horizon: "long", Weights: map[string]float64{"decision": 2.0, "risk": 0.5, "opportunity": 1.5}}
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, want.Horizon, got.Horizon)
	assert.Equal(t, want.Weights, got.Weights)
}
