package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/agroscan/agroscan/pkg/stats"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	history   []storage.ScanRecord
	fetchErr  error
	deleteErr error
	deleted   []string
}

func (f *fakeSource) FetchHistory(context.Context) ([]storage.ScanRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]storage.ScanRecord(nil), f.history...), nil
}

func (f *fakeSource) DeleteScan(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) ([]storage.ScanRecord, error) {
	return nil, storage.ErrStorageUnavailable
}
func (brokenStore) ReplaceAll(context.Context, string, []storage.ScanRecord) error {
	return storage.ErrStorageUnavailable
}
func (brokenStore) Remove(context.Context, string, string) (bool, error) {
	return false, storage.ErrStorageUnavailable
}

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func scan(id string, conf int, minutes int) storage.ScanRecord {
	return storage.ScanRecord{ID: id, Timestamp: t0.Add(time.Duration(minutes) * time.Minute), Result: "Maize Rust", Confidence: conf, Advice: "spray"}
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "agroscan.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ids(records []storage.ScanRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestRefreshRemoteWins(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.ReplaceAll(ctx, storage.ResultsKey, []storage.ScanRecord{scan("stale", 99, 0)}))

	var seen []stats.AggregateStats
	src := &fakeSource{history: []storage.ScanRecord{scan("a", 10, 0), scan("b", 50, 1), scan("c", 80, 2)}}
	r := New(Config{Source: src, Store: store, OnStats: func(s stats.AggregateStats) { seen = append(seen, s) }})

	res, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, []string{"c", "b", "a"}, ids(res.Records))
	assert.Equal(t, stats.AggregateStats{TotalScans: 3, Healthy: 1, Warnings: 1, Critical: 1, LastScan: res.Stats.LastScan}, res.Stats)

	cached, err := store.Load(ctx, storage.ResultsKey)
	require.NoError(t, err)
	assert.Equal(t, res.Records, cached)

	require.Len(t, seen, 1)
	assert.Equal(t, 3, seen[0].TotalScans)
}

func TestRefreshKeepsMissingTimestamps(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	src := &fakeSource{history: []storage.ScanRecord{{ID: "a", Result: "Maize Rust", Confidence: 50}}}
	r := New(Config{Source: src, Store: store})

	res, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(res.Records) != 1 || !res.Records[0].Timestamp.IsZero() {
		t.Fatalf("Refresh() records = %+v, want one undated record", res.Records)
	}
	if res.Stats.LastScan != nil {
		t.Errorf("LastScan = %v, want nil", res.Stats.LastScan)
	}

	cached, err := store.Load(ctx, storage.ResultsKey)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cached, src.history) {
		t.Errorf("cached = %+v, want %+v", cached, src.history)
	}

	s, _ := r.Stats(ctx)
	if s.LastScan != nil {
		t.Errorf("Stats().LastScan = %v, want nil", s.LastScan)
	}
}

func TestRefreshEmptyRemoteClearsCache(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.ReplaceAll(ctx, storage.ResultsKey, []storage.ScanRecord{scan("old", 20, 0)}))

	r := New(Config{Source: &fakeSource{history: []storage.ScanRecord{}}, Store: store})
	res, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	cached, err := store.Load(ctx, storage.ResultsKey)
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestRefreshFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	local := []storage.ScanRecord{scan("b", 75, 1), scan("a", 30, 0)}
	require.NoError(t, store.ReplaceAll(ctx, storage.ResultsKey, local))

	remoteErr := fmt.Errorf("fetch history: %w", analysis.ErrNetworkFailure)
	calls := 0
	r := New(Config{Source: &fakeSource{fetchErr: remoteErr}, Store: store, OnStats: func(stats.AggregateStats) { calls++ }})

	res, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.ErrorIs(t, res.RemoteErr, analysis.ErrNetworkFailure)
	assert.Equal(t, local, res.Records)
	assert.Equal(t, 2, res.Stats.TotalScans)
	assert.Equal(t, 1, res.Stats.Critical)
	assert.Equal(t, 1, calls)

	// the cache is not touched by a failed refresh
	cached, err := store.Load(ctx, storage.ResultsKey)
	require.NoError(t, err)
	assert.Equal(t, local, cached)
}

func TestRefreshNoHistory(t *testing.T) {
	tests := []struct {
		name  string
		store Store
	}{
		{"empty cache", nil},
		{"storage unavailable", brokenStore{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := tc.store
			if store == nil {
				store = openStore(t)
			}
			remoteErr := fmt.Errorf("fetch history: %w", analysis.ErrMalformedResponse)
			var last *stats.AggregateStats
			r := New(Config{Source: &fakeSource{fetchErr: remoteErr}, Store: store, OnStats: func(s stats.AggregateStats) { last = &s }})

			res, err := r.Refresh(context.Background())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrNoHistory)
			assert.ErrorIs(t, err, analysis.ErrMalformedResponse)
			require.NotNil(t, last)
			assert.Zero(t, last.TotalScans)
		})
	}
}

func TestRefreshStorageWriteFailureStillReturnsRemote(t *testing.T) {
	r := New(Config{Source: &fakeSource{history: []storage.ScanRecord{scan("a", 10, 0)}}, Store: brokenStore{}})
	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res.Records))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.ReplaceAll(ctx, storage.ResultsKey, []storage.ScanRecord{scan("b", 75, 1), scan("a", 30, 0)}))

	src := &fakeSource{}
	r := New(Config{Source: src, Store: store})
	res, err := r.Delete(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, []string{"b"}, src.deleted)
	assert.Equal(t, []string{"a"}, ids(res.Records))
	assert.Equal(t, 1, res.Stats.TotalScans)

	// unknown id is a no-op locally
	res, err = r.Delete(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, res.Removed)
	assert.Equal(t, []string{"a"}, ids(res.Records))
}

func TestDeleteRemoteFailureKeepsLocalRemoval(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.ReplaceAll(ctx, storage.ResultsKey, []storage.ScanRecord{scan("b", 75, 1), scan("a", 30, 0)}))

	src := &fakeSource{deleteErr: fmt.Errorf("delete scan: %w", analysis.ErrNetworkFailure)}
	r := New(Config{Source: src, Store: store})

	res, err := r.Delete(ctx, "b")
	assert.ErrorIs(t, err, ErrRemoteDelete)
	assert.ErrorIs(t, err, analysis.ErrNetworkFailure)
	require.NotNil(t, res)
	assert.True(t, res.Removed)

	cached, lerr := store.Load(ctx, storage.ResultsKey)
	require.NoError(t, lerr)
	assert.Equal(t, []string{"a"}, ids(cached))
}

func TestDeleteLocalFailure(t *testing.T) {
	r := New(Config{Source: &fakeSource{}, Store: brokenStore{}})
	res, err := r.Delete(context.Background(), "a")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.False(t, errors.Is(err, ErrRemoteDelete))
	require.NotNil(t, res)
	assert.Empty(t, res.Records)
}

func TestStatsTreatsStorageFailureAsEmpty(t *testing.T) {
	r := New(Config{Source: &fakeSource{}, Store: brokenStore{}})
	s, records := r.Stats(context.Background())
	assert.Zero(t, s.TotalScans)
	assert.Empty(t, records)
}

func TestNewestFirst(t *testing.T) {
	undated := func(id string) storage.ScanRecord { return storage.ScanRecord{ID: id} }

	tests := []struct {
		name string
		in   []storage.ScanRecord
		want []string
	}{
		{"empty", nil, []string{}},
		{"single", []storage.ScanRecord{scan("a", 0, 0)}, []string{"a"}},
		{"oldest first", []storage.ScanRecord{scan("a", 0, 0), scan("b", 0, 1), scan("c", 0, 2)}, []string{"c", "b", "a"}},
		{"already newest first", []storage.ScanRecord{scan("c", 0, 2), scan("b", 0, 1), scan("a", 0, 0)}, []string{"c", "b", "a"}},
		{"equal timestamps", []storage.ScanRecord{scan("a", 0, 0), scan("b", 0, 0)}, []string{"b", "a"}},
		{"missing timestamps", []storage.ScanRecord{undated("a"), scan("b", 0, 5), undated("c")}, []string{"c", "b", "a"}},
		{"shuffled", []storage.ScanRecord{scan("b", 0, 1), scan("c", 0, 2), scan("a", 0, 0)}, []string{"c", "b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(NewestFirst(tc.in)); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("NewestFirst() = %v, want %v", got, tc.want)
			}
		})
	}
}
