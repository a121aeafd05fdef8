package storage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection keys. Each holds one JSON array of ScanRecord.
const (
	ResultsKey = "results"
	ReportsKey = "reports"
)

// HealthyClass is the class name the analysis service uses for a clean field.
const HealthyClass = "Healthy"

// IsHealthyClass compares a disease class against HealthyClass, ignoring case and padding.
func IsHealthyClass(class string) bool {
	return strings.EqualFold(strings.TrimSpace(class), HealthyClass)
}

// NewRecordID returns an identifier for records the server did not name.
func NewRecordID() string {
	return uuid.NewString()
}

// ensureID fills in a missing ID. Timestamps are left alone: a record without one stays
// without one.
func ensureID(r ScanRecord) ScanRecord {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = NewRecordID()
	}
	return r
}

// stamp is ensureID for records produced on this machine right now.
func stamp(r ScanRecord) ScanRecord {
	r = ensureID(r)
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return r
}

// Dedupe fills in missing IDs and drops records whose ID was already seen, keeping the
// first (newest) one.
func Dedupe(records []ScanRecord) []ScanRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]ScanRecord, 0, len(records))
	for _, r := range records {
		r = ensureID(r)
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
