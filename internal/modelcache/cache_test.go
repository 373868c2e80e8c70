package modelcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/modelcache"
)

// Invariant 4 / Scenario C: N concurrent GetOrLoad calls with the same key
// and a deterministic loader invoke the loader exactly once and all
// callers observe the same result.
func TestGetOrLoadSingleFlight(t *testing.T) {
	cache := modelcache.New(zerolog.Nop())
	var invocations int64

	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&invocations, 1)
		return "clf-triple-barrier-TECH", nil
	}

	const n = 50
	results := make([]interface{}, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := cache.GetOrLoad(context.Background(), "clf-triple-barrier-TECH", loader)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&invocations))
	for _, r := range results {
		assert.Equal(t, "clf-triple-barrier-TECH", r)
	}
}

func TestGetOrLoadFailureLeavesEntryAbsent(t *testing.T) {
	cache := modelcache.New(zerolog.Nop())
	boom := errors.New("boom")
	failing := func(ctx context.Context) (interface{}, error) { return nil, boom }

	_, err := cache.GetOrLoad(context.Background(), "k", failing)
	assert.ErrorIs(t, err, boom)

	var calls int64
	succeeding := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "ok", nil
	}
	v, err := cache.GetOrLoad(context.Background(), "k", succeeding)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

// Invariant 5: SnapshotFor(ts, last) returns the snapshot with the
// greatest available_from_ts <= ts, or NoSnapshotError when none exists.
func TestSnapshotForLastPolicy(t *testing.T) {
	handle := &modelcache.Handle{
		TaskID: "h1",
		Snapshots: []modelcache.Snapshot{
			{SnapshotID: "s1", AvailableFromTS: 1000},
			{SnapshotID: "s2", AvailableFromTS: 2000},
			{SnapshotID: "s3", AvailableFromTS: 3000},
		},
	}

	snap, err := modelcache.SnapshotFor(handle, 2500, modelcache.PolicyLast)
	require.NoError(t, err)
	assert.Equal(t, "s2", snap.SnapshotID)

	snap, err = modelcache.SnapshotFor(handle, 1500, modelcache.PolicyFirst)
	require.NoError(t, err)
	assert.Equal(t, "s1", snap.SnapshotID)

	_, err = modelcache.SnapshotFor(handle, 500, modelcache.PolicyLast)
	assert.Error(t, err)
}
