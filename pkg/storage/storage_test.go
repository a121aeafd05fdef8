package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "agroscan.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id string, conf int, ts time.Time) ScanRecord {
	return ScanRecord{ID: id, Timestamp: ts, Result: "Maize Rust", Confidence: conf, Advice: "spray"}
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Load(context.Background(), ResultsKey)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReplaceAllRoundTrip(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ndvi := 0.65

	tests := []struct {
		name    string
		records []ScanRecord
	}{
		{"empty", []ScanRecord{}},
		{"single", []ScanRecord{rec("a", 10, base)}},
		{"order is kept", []ScanRecord{
			rec("c", 80, base.Add(2*time.Hour)),
			rec("a", 10, base),
			rec("b", 55, base.Add(time.Hour)),
		}},
		{"optional fields", []ScanRecord{
			{ID: "x", Timestamp: base, Result: "Healthy", Confidence: 92, Advice: "keep going", NDVI: &ndvi, Status: "healthy"},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()

			require.NoError(t, s.ReplaceAll(ctx, ResultsKey, tc.records))
			got, err := s.Load(ctx, ResultsKey)
			require.NoError(t, err)
			assert.Equal(t, tc.records, got)
		})
	}
}

func TestReplaceAllDropsDuplicateIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceAll(ctx, ResultsKey, []ScanRecord{
		rec("a", 90, base.Add(time.Hour)),
		rec("a", 10, base),
		rec("b", 50, base),
	}))

	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 90, got[0].Confidence)
	assert.Equal(t, "b", got[1].ID)
}

func TestReplaceAllKeepsMissingTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []ScanRecord{{ID: "a", Result: "Maize Rust", Confidence: 50}}
	require.NoError(t, s.ReplaceAll(ctx, ResultsKey, records))

	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.IsZero())
	assert.Equal(t, records, got)
}

func TestReplaceAllSynthesizesOnlyIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, ResultsKey, []ScanRecord{{Result: "Healthy", Confidence: 5}}))
	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.True(t, got[0].Timestamp.IsZero())
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []ScanRecord{rec("a", 10, base), rec("b", 50, base)}
	require.NoError(t, s.ReplaceAll(ctx, ResultsKey, records))

	removed, err := s.Remove(ctx, ResultsKey, "missing")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	removed, err = s.Remove(ctx, ResultsKey, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, ResultsKey, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	assert.Equal(t, []ScanRecord{records[1]}, got)
}

func TestAppendIsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, ResultsKey, rec("a", 10, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, ResultsKey, rec("b", 20, base.Add(time.Minute)))
	require.NoError(t, err)
	// same id replaces the old entry and moves it to the front
	_, err = s.Append(ctx, ResultsKey, rec("a", 30, base.Add(2*time.Minute)))
	require.NoError(t, err)

	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 30, got[0].Confidence)
	assert.Equal(t, "b", got[1].ID)
}

func TestAppendSynthesizesID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Append(ctx, ResultsKey, ScanRecord{Result: "Healthy"})
	require.NoError(t, err)
	b, err := s.Append(ctx, ResultsKey, ScanRecord{Result: "Healthy"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}

func TestConcurrentAppendKeepsEveryRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, ResultsKey, ScanRecord{Result: "Healthy"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Load(ctx, ResultsKey)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestClearAndSize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Size(ctx, ReportsKey)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.ReplaceAll(ctx, ReportsKey, []ScanRecord{rec("a", 10, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))}))
	n, err = s.Size(ctx, ReportsKey)
	require.NoError(t, err)
	assert.Positive(t, n)

	require.NoError(t, s.Clear(ctx, ReportsKey))
	got, err := s.Load(ctx, ReportsKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPutScalars(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "theme", "dark"))
	v, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestLoadCorruptCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, ResultsKey, "{not json"))

	_, err := s.Load(ctx, ResultsKey)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestLoadDriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv").
		WithArgs(ResultsKey).
		WillReturnError(errors.New("disk I/O error"))

	s := newStore(db)
	_, err = s.Load(context.Background(), ResultsKey)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveRollsBackOnWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT value FROM kv").
		WithArgs(ResultsKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":"a","timestamp":"2024-05-01T00:00:00Z","result":"Healthy","confidence":5,"advice":""}]`))
	mock.ExpectExec("INSERT INTO kv").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	s := newStore(db)
	_, err = s.Remove(context.Background(), ResultsKey, "a")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	var s *Store
	_, err := s.Load(context.Background(), ResultsKey)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, s.ReplaceAll(context.Background(), ResultsKey, nil), ErrStorageUnavailable)
}
