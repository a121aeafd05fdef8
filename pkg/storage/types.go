package storage

import "time"

// ScanRecord is one completed disease analysis as kept in a local collection.
type ScanRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Disease class, "Healthy" for a clean field
	Result string `json:"result"`
	// Always 0-100
	Confidence int    `json:"confidence"`
	Advice     string `json:"advice"`

	NDVI   *float64 `json:"ndvi,omitempty"`
	Status string   `json:"status,omitempty"`
}

// IsHealthy reports whether the record carries the distinguished healthy class.
func (r ScanRecord) IsHealthy() bool {
	return IsHealthyClass(r.Result)
}
