package stats

import (
	"testing"
	"time"

	"github.com/agroscan/agroscan/pkg/storage"
)

func build(h, w, c int) []storage.ScanRecord {
	var out []storage.ScanRecord
	for i := 0; i < h; i++ {
		out = append(out, storage.ScanRecord{Confidence: i % WarningThreshold})
	}
	for i := 0; i < w; i++ {
		out = append(out, storage.ScanRecord{Confidence: WarningThreshold + i%(CriticalThreshold-WarningThreshold)})
	}
	for i := 0; i < c; i++ {
		out = append(out, storage.ScanRecord{Confidence: CriticalThreshold + i%31})
	}
	return out
}

func TestAggregatePartition(t *testing.T) {
	for h := 0; h < 5; h++ {
		for w := 0; w < 5; w++ {
			for c := 0; c < 5; c++ {
				got := Aggregate(build(h, w, c))
				want := AggregateStats{TotalScans: h + w + c, Healthy: h, Warnings: w, Critical: c}
				if got.TotalScans != want.TotalScans || got.Healthy != want.Healthy ||
					got.Warnings != want.Warnings || got.Critical != want.Critical {
					t.Fatalf("Aggregate(%d,%d,%d) = %+v, want %+v", h, w, c, got, want)
				}
			}
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if got != (AggregateStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
	for _, b := range []Bucket{Healthy, Warning, Critical} {
		if p := got.Percent(b); p != 0 {
			t.Fatalf("Percent(%s) on empty = %v, want 0", b, p)
		}
	}
}

func TestBucketBoundaries(t *testing.T) {
	cases := map[int]Bucket{0: Healthy, 39: Healthy, 40: Warning, 69: Warning, 70: Critical, 100: Critical}
	for conf, want := range cases {
		if got := BucketOf(conf); got != want {
			t.Errorf("BucketOf(%d) = %s, want %s", conf, got, want)
		}
	}
}

func TestLastScanIsMostRecent(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got := Aggregate([]storage.ScanRecord{
		{Timestamp: base.Add(time.Hour)},
		{Timestamp: base.Add(3 * time.Hour)},
		{},
		{Timestamp: base},
	})
	if got.LastScan == nil || !got.LastScan.Equal(base.Add(3*time.Hour)) {
		t.Fatalf("LastScan = %v", got.LastScan)
	}
}

func TestPercent(t *testing.T) {
	s := Aggregate(build(1, 1, 2))
	if p := s.Percent(Critical); p != 50 {
		t.Fatalf("Percent(critical) = %v, want 50", p)
	}
	if p := s.Percent(Healthy); p != 25 {
		t.Fatalf("Percent(healthy) = %v, want 25", p)
	}
}
