package artifactstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/sentinel/internal/modelcache"
)

// Invariant: a task already present in the local disk cache is served
// without touching the network client.
func TestStoreLoadServesFromDiskCache(t *testing.T) {
	dir := t.TempDir()
	s := &Store{cacheDir: dir, log: zerolog.Nop()}

	want := &modelcache.Handle{TaskID: "clf-triple-barrier", MainKernel: "kernel-blob"}
	raw, err := msgpack.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, s.saveToDisk("clf-triple-barrier", raw))

	got, err := s.Load(context.Background(), "clf-triple-barrier")
	require.NoError(t, err)
	require.Equal(t, want.TaskID, got.TaskID)
	require.Equal(t, want.MainKernel, got.MainKernel)
}

func TestStoreLoadFromDiskMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	s := &Store{cacheDir: dir, log: zerolog.Nop()}

	_, ok := s.loadFromDisk("absent-task")
	require.False(t, ok)
}
