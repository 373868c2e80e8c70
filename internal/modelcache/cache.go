// Package modelcache implements the single-flight model/explainer cache:
// heavy artifacts (predictors, SHAP explainers) are loaded exactly once per
// key across many concurrent callers, and snapshots are resolved by time
// without look-ahead bias.
package modelcache

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/sentinel/internal/apperrors"
)

// Loader performs the blocking I/O (artifact download) and CPU work
// (deserialization) needed to produce the value for key. It must be safe
// to retry after a failure.
type Loader func(ctx context.Context) (interface{}, error)

// Cache is a single-flight, load-once-cache-forever map from logical key
// (model_slug or task_id) to loaded value.
//
// Concurrent callers requesting the same key observe exactly one
// invocation of Loader; all of them receive the same result or the same
// error. On success the value is cached indefinitely. On failure the
// entry is absent afterward, so a later caller retries.
type Cache struct {
	log    zerolog.Logger
	mu     sync.RWMutex
	values map[string]interface{}
	group  singleflight.Group
}

// New creates an empty cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{
		log:    log.With().Str("component", "modelcache.Cache").Logger(),
		values: make(map[string]interface{}),
	}
}

// GetOrLoad returns the cached value for key, loading it via loader if
// absent. See Cache's doc comment for the single-flight contract.
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader Loader) (interface{}, error) {
	if v, ok := c.peek(key); ok {
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.values[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		c.log.Warn().Str("key", key).Bool("shared", shared).Err(err).Msg("loader failed, entry left absent")
		return nil, err
	}
	return v, nil
}

func (c *Cache) peek(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Evict removes key unconditionally.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
}

// SnapshotPolicy governs which eligible snapshot SnapshotFor returns.
type SnapshotPolicy int

const (
	// PolicyFirst returns the earliest eligible snapshot.
	PolicyFirst SnapshotPolicy = iota
	// PolicyLast returns the latest eligible snapshot.
	PolicyLast
)

// Snapshot is one versioned predictor checkpoint.
type Snapshot struct {
	SnapshotID      string
	AvailableFromTS int64
	Kernel          interface{}
}

// Handle is the cached value shape for a forecasting task: a main kernel
// plus an ordered set of time-versioned snapshots, used for
// look-ahead-bias-free historical evaluation.
type Handle struct {
	TaskID      string
	Framework   string
	Variation   string
	MainKernel  interface{}
	Snapshots   []Snapshot // need not be pre-sorted; SnapshotFor scans all entries
	FeatureList []string
}

// SnapshotFor returns the snapshot from handle eligible at asOfTS under
// policy: eligibility requires AvailableFromTS <= asOfTS (never look
// ahead). PolicyFirst picks the earliest eligible snapshot, PolicyLast the
// latest. Returns NoSnapshotError if none is eligible.
func SnapshotFor(handle *Handle, asOfTS int64, policy SnapshotPolicy) (Snapshot, error) {
	var best Snapshot
	found := false
	for _, s := range handle.Snapshots {
		if s.AvailableFromTS > asOfTS {
			continue
		}
		switch {
		case !found:
			best, found = s, true
		case policy == PolicyFirst && s.AvailableFromTS < best.AvailableFromTS:
			best = s
		case policy == PolicyLast && s.AvailableFromTS > best.AvailableFromTS:
			best = s
		}
	}
	if !found {
		return Snapshot{}, &apperrors.NoSnapshotError{HandleID: handle.TaskID, AsOfTS: asOfTS}
	}
	return best, nil
}

// SortedSnapshots returns a copy of handle's snapshots ordered by
// AvailableFromTS ascending.
func SortedSnapshots(handle *Handle) []Snapshot {
	out := make([]Snapshot, len(handle.Snapshots))
	copy(out, handle.Snapshots)
	sort.Slice(out, func(i, j int) bool { return out[i].AvailableFromTS < out[j].AvailableFromTS })
	return out
}

// KernelLoader loads a snapshot's kernel into memory given its snapshot ID.
type KernelLoader func(ctx context.Context, snapshotID string) (interface{}, error)

// BulkLoadSnapshots loads every snapshot kernel in handle into memory,
// used before bulk historical evaluation so every group's explainer can be
// constructed without further I/O.
func BulkLoadSnapshots(ctx context.Context, handle *Handle, load KernelLoader) error {
	for i := range handle.Snapshots {
		kernel, err := load(ctx, handle.Snapshots[i].SnapshotID)
		if err != nil {
			return err
		}
		handle.Snapshots[i].Kernel = kernel
	}
	return nil
}

// UnloadSnapshots releases every snapshot kernel in handle, used after a
// history batch completes.
func UnloadSnapshots(handle *Handle) {
	for i := range handle.Snapshots {
		handle.Snapshots[i].Kernel = nil
	}
}
