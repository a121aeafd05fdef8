package weather

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/stretchr/testify/assert"
)

type stubFetcher struct {
	calls int
	w     analysis.Weather
	err   error
}

func (s *stubFetcher) Weather(_ context.Context, region string) (analysis.Weather, error) {
	s.calls++
	if s.err != nil {
		return analysis.Weather{}, s.err
	}
	w := s.w
	w.Region = region
	return w, nil
}

func TestCurrentCachesLiveValue(t *testing.T) {
	f := &stubFetcher{w: analysis.Weather{Temp: 31, Condition: "Sunny"}}
	s := New(f, time.Minute)
	ctx := context.Background()

	w, src := s.Current(ctx, "North")
	assert.Equal(t, Live, src)
	assert.Equal(t, 31.0, w.Temp)

	w, src = s.Current(ctx, "North")
	assert.Equal(t, Cached, src)
	assert.Equal(t, "Sunny", w.Condition)
	assert.Equal(t, 1, f.calls)
}

func TestCurrentFallsBackToLastKnown(t *testing.T) {
	f := &stubFetcher{w: analysis.Weather{Temp: 22, Condition: "Rainy"}}
	s := New(f, 10*time.Millisecond)
	ctx := context.Background()

	_, src := s.Current(ctx, "West")
	assert.Equal(t, Live, src)

	time.Sleep(20 * time.Millisecond)
	f.err = fmt.Errorf("weather: %w", analysis.ErrNetworkFailure)

	w, src := s.Current(ctx, "West")
	assert.Equal(t, Stale, src)
	assert.Equal(t, "Rainy", w.Condition)
}

func TestCurrentFallsBackToDefault(t *testing.T) {
	s := New(&stubFetcher{err: analysis.ErrNetworkFailure}, 0)

	w, src := s.Current(context.Background(), "East")
	assert.Equal(t, Builtin, src)
	assert.Equal(t, 28.0, w.Temp)
	assert.Equal(t, "Partly Cloudy", w.Condition)
	assert.Equal(t, "Ideal conditions for maize growth", w.Advice)
	assert.Equal(t, "cloud-sun", w.Icon)
	assert.Equal(t, "East", w.Region)
}

func TestCurrentWithoutFetcher(t *testing.T) {
	_, src := New(nil, 0).Current(context.Background(), "East")
	assert.Equal(t, Builtin, src)
}
