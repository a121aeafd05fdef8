// Package stats derives dashboard numbers from a collection of scan records.
package stats

import (
	"time"

	"github.com/agroscan/agroscan/pkg/storage"
)

// Bucket is a confidence bucket.
type Bucket string

const (
	Healthy  Bucket = "healthy"
	Warning  Bucket = "warning"
	Critical Bucket = "critical"
)

const (
	WarningThreshold  = 40
	CriticalThreshold = 70
)

// AggregateStats is a projection of a record collection. It is never stored.
type AggregateStats struct {
	TotalScans int        `json:"totalScans"`
	Healthy    int        `json:"healthy"`
	Warnings   int        `json:"warnings"`
	Critical   int        `json:"critical"`
	LastScan   *time.Time `json:"lastScan,omitempty"`
}

// BucketOf classifies a 0-100 confidence score. High disease confidence is critical.
func BucketOf(confidence int) Bucket {
	switch {
	case confidence < WarningThreshold:
		return Healthy
	case confidence < CriticalThreshold:
		return Warning
	default:
		return Critical
	}
}

func Aggregate(records []storage.ScanRecord) AggregateStats {
	s := AggregateStats{TotalScans: len(records)}
	for _, r := range records {
		switch BucketOf(r.Confidence) {
		case Healthy:
			s.Healthy++
		case Warning:
			s.Warnings++
		case Critical:
			s.Critical++
		}
		if r.Timestamp.IsZero() {
			continue
		}
		if s.LastScan == nil || r.Timestamp.After(*s.LastScan) {
			ts := r.Timestamp
			s.LastScan = &ts
		}
	}
	return s
}

// Count returns the number of records in bucket b.
func (s AggregateStats) Count(b Bucket) int {
	switch b {
	case Healthy:
		return s.Healthy
	case Warning:
		return s.Warnings
	case Critical:
		return s.Critical
	}
	return 0
}

// Percent returns the share of bucket b in 0-100. An empty collection yields 0.
func (s AggregateStats) Percent(b Bucket) float64 {
	if s.TotalScans == 0 {
		return 0
	}
	return float64(s.Count(b)) * 100 / float64(s.TotalScans)
}
