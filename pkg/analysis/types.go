package analysis

import "time"

// SceneCandidate is a satellite scene offered by discovery. It only lives for one flow.
type SceneCandidate struct {
	EntityID        string  `json:"entityId"`
	DisplayID       string  `json:"displayId,omitempty"`
	AcquisitionDate string  `json:"acquisitionDate"`
	CloudCover      float64 `json:"cloudCover"`
	ThumbnailPath   string  `json:"thumbnailPath,omitempty"`
	Path            string  `json:"path,omitempty"`
	Row             string  `json:"row,omitempty"`
}

// SceneQuery selects scenes for discovery.
type SceneQuery struct {
	Region   string
	Date     string
	MaxCloud int
}

// IndexStats summarizes a vegetation index over the analysed area.
type IndexStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// AnalysisResult is the canonical form of a detect_disease answer.
type AnalysisResult struct {
	ScanID          string      `json:"scanId,omitempty"`
	Class           string      `json:"class"`
	Confidence      int         `json:"confidence"`
	IsHealthy       bool        `json:"isHealthy"`
	Severity        string      `json:"severity,omitempty"`
	NDVI            *IndexStats `json:"ndvi,omitempty"`
	NDWI            *float64    `json:"ndwi,omitempty"`
	Visualization   string      `json:"visualization,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Advice          string      `json:"advice,omitempty"`
}

// DetectRequest asks for an analysis of either a scene or a local image.
type DetectRequest struct {
	SceneID     string
	ImagePath   string
	GenerateMap bool
	Threshold   float64
}

// Weather is the current conditions and farming advice for a region.
type Weather struct {
	Region    string    `json:"region"`
	Temp      float64   `json:"temp"`
	Condition string    `json:"condition"`
	Advice    string    `json:"advice"`
	Icon      string    `json:"icon"`
	FetchedAt time.Time `json:"fetchedAt"`
}
