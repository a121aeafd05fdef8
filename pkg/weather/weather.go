// Package weather serves current conditions for a region, degrading to cached or built-in
// values when the service cannot be reached.
package weather

import (
	"context"
	"time"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/patrickmn/go-cache"
)

const DefaultTTL = 30 * time.Minute

// Source says where a Weather value came from.
type Source string

const (
	Live    Source = "live"
	Cached  Source = "cached"
	Stale   Source = "stale"
	Builtin Source = "default"
)

// Default is shown when nothing better is known.
var Default = analysis.Weather{
	Temp:      28,
	Condition: "Partly Cloudy",
	Advice:    "Ideal conditions for maize growth",
	Icon:      "cloud-sun",
}

type Fetcher interface {
	Weather(ctx context.Context, region string) (analysis.Weather, error)
}

type Service struct {
	fetcher Fetcher
	cache   *cache.Cache
}

// New creates a weather service. A ttl of zero uses DefaultTTL.
func New(f Fetcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		fetcher: f,
		cache:   cache.New(ttl, ttl*2),
	}
}

func freshKey(region string) string { return "fresh:" + region }
func lastKey(region string) string  { return "last:" + region }

// Current returns the weather for region. It never fails: a failed fetch falls back to the
// last value seen for the region and then to Default.
func (s *Service) Current(ctx context.Context, region string) (analysis.Weather, Source) {
	if v, ok := s.cache.Get(freshKey(region)); ok {
		if w, ok := v.(analysis.Weather); ok {
			return w, Cached
		}
	}

	if s.fetcher != nil {
		w, err := s.fetcher.Weather(ctx, region)
		if err == nil {
			s.cache.Set(freshKey(region), w, cache.DefaultExpiration)
			s.cache.Set(lastKey(region), w, cache.NoExpiration)
			return w, Live
		}
		utils.Log.Debugf("Weather for %s unavailable: %v", region, err)
	}

	if v, ok := s.cache.Get(lastKey(region)); ok {
		if w, ok := v.(analysis.Weather); ok {
			return w, Stale
		}
	}
	w := Default
	w.Region = region
	return w, Builtin
}

// Flush drops every cached value.
func (s *Service) Flush() {
	s.cache.Flush()
}
