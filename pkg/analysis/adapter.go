package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agroscan/agroscan/pkg/advice"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/tidwall/gjson"
)

// The service has changed its response shapes over time. Every alias below has been seen
// in the wild; the first non-empty one wins.
var (
	idPaths         = []string{"id", "scan_id", "_id"}
	timePaths       = []string{"timestamp", "created_at", "date"}
	classPaths      = []string{"result", "diagnosis", "disease", "prediction.class", "class"}
	confidencePaths = []string{"confidence", "prediction.confidence"}
	advicePaths     = []string{"advice", "recommendations"}
	ndviPaths       = []string{"ndvi", "vegetation_indices.ndvi"}
	statusPaths     = []string{"status", "prediction.severity", "severity"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func first(obj gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); v.Exists() && v.Type != gjson.Null && !(v.Type == gjson.String && strings.TrimSpace(v.Str) == "") {
			return v
		}
	}
	return gjson.Result{}
}

func parseHistory(body string) ([]storage.ScanRecord, error) {
	const op = "fetch history"
	if !gjson.Valid(body) {
		return nil, malformed(op, "body is not JSON")
	}
	root := gjson.Parse(body)
	list := root
	if !root.IsArray() {
		list = root.Get("history")
		if !list.Exists() {
			return nil, malformed(op, "missing history list")
		}
		if list.Type == gjson.Null {
			return []storage.ScanRecord{}, nil
		}
		if !list.IsArray() {
			return nil, malformed(op, "history is %s, not a list", list.Type)
		}
	}

	items := list.Array()
	out := make([]storage.ScanRecord, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, malformed(op, "history entry %d is not an object", i)
		}
		out = append(out, parseRecord(item))
	}
	return out, nil
}

// parseRecord maps one loosely shaped history entry into a ScanRecord.
func parseRecord(item gjson.Result) storage.ScanRecord {
	r := storage.ScanRecord{
		ID:         strings.TrimSpace(first(item, idPaths).String()),
		Timestamp:  parseTime(first(item, timePaths)),
		Result:     strings.TrimSpace(first(item, classPaths).String()),
		Confidence: parseConfidence(first(item, confidencePaths)),
		Advice:     joinText(first(item, advicePaths)),
		Status:     strings.ToLower(strings.TrimSpace(first(item, statusPaths).String())),
	}
	if v, ok := parseIndex(first(item, ndviPaths)); ok {
		r.NDVI = &v.Mean
	}
	if r.Status == "" && r.IsHealthy() {
		r.Status = "healthy"
	}
	return r
}

func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		return epoch(v.Num)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epoch(n)
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func epoch(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	return time.Unix(storage.NormalizeEpoch(n)).UTC()
}

func parseConfidence(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return storage.NormalizeConfidence(v.Num)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		pct := strings.HasSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0
		}
		// "1%" means one percent, not a fraction
		if pct && f > 0 && f <= 1 {
			return int(math.Round(f))
		}
		return storage.NormalizeConfidence(f)
	}
	return 0
}

// joinText accepts either a string or a list of strings.
func joinText(v gjson.Result) string {
	if v.IsArray() {
		parts := make([]string, 0, len(v.Array()))
		for _, p := range v.Array() {
			if s := strings.TrimSpace(p.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return strings.TrimSpace(v.String())
}

func stringList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsArray() {
		if s := strings.TrimSpace(v.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, p := range v.Array() {
		if s := strings.TrimSpace(p.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseIndex reads a vegetation index given as a bare number or as {mean,min,max}.
func parseIndex(v gjson.Result) (IndexStats, bool) {
	switch {
	case v.Type == gjson.Number:
		return IndexStats{Mean: v.Num, Min: v.Num, Max: v.Num}, true
	case v.Type == gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return IndexStats{}, false
		}
		return IndexStats{Mean: f, Min: f, Max: f}, true
	case v.IsObject():
		mean := v.Get("mean")
		if mean.Type != gjson.Number {
			return IndexStats{}, false
		}
		s := IndexStats{Mean: mean.Num, Min: mean.Num, Max: mean.Num}
		if m := v.Get("min"); m.Type == gjson.Number {
			s.Min = m.Num
		}
		if m := v.Get("max"); m.Type == gjson.Number {
			s.Max = m.Num
		}
		return s, true
	}
	return IndexStats{}, false
}

func parseScenes(body string) ([]SceneCandidate, error) {
	const op = "discover scenes"
	if !gjson.Valid(body) {
		return nil, malformed(op, "body is not JSON")
	}
	root := gjson.Parse(body)
	list := root
	if !root.IsArray() {
		list = first(root, []string{"results", "scenes"})
		if !list.Exists() {
			if root.Get("results").Exists() || root.Get("scenes").Exists() {
				return []SceneCandidate{}, nil
			}
			return nil, malformed(op, "missing results list")
		}
		if !list.IsArray() {
			return nil, malformed(op, "scene list is %s, not a list", list.Type)
		}
	}

	out := make([]SceneCandidate, 0, len(list.Array()))
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		s := sceneFrom(item, SceneCandidate{})
		if s.EntityID == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// sceneFrom overlays every field present in item onto base.
func sceneFrom(item gjson.Result, base SceneCandidate) SceneCandidate {
	if v := first(item, []string{"entityId", "entity_id", "id"}); v.Exists() {
		base.EntityID = strings.TrimSpace(v.String())
	}
	if v := first(item, []string{"displayId", "display_id"}); v.Exists() {
		base.DisplayID = v.String()
	}
	if v := first(item, []string{"acquisitionDate", "acquisition_date", "date"}); v.Exists() {
		base.AcquisitionDate = v.String()
	}
	if v := first(item, []string{"cloudCover", "cloud_cover"}); v.Exists() {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64); err == nil {
			base.CloudCover = f
		}
	}
	if v := first(item, []string{"thumbnailPath", "thumbnail", "browsePath"}); v.Exists() {
		base.ThumbnailPath = v.String()
	}
	if v := first(item, []string{"path", "wrs_path"}); v.Exists() {
		base.Path = v.String()
	}
	if v := first(item, []string{"row", "wrs_row"}); v.Exists() {
		base.Row = v.String()
	}
	return base
}

func mergeScene(base SceneCandidate, body string) (SceneCandidate, error) {
	if !gjson.Valid(body) {
		return base, malformed("scene metadata", "body is not JSON")
	}
	root := gjson.Parse(body)
	data := root
	if d := root.Get("data"); d.IsObject() {
		data = d
	}
	if !data.IsObject() {
		return base, malformed("scene metadata", "expected an object")
	}
	id := base.EntityID
	merged := sceneFrom(data, base)
	// the id we asked about is authoritative
	merged.EntityID = id
	return merged, nil
}

func parseDetection(body string) (AnalysisResult, error) {
	const op = "detect disease"
	if !gjson.Valid(body) {
		return AnalysisResult{}, malformed(op, "body is not JSON")
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return AnalysisResult{}, malformed(op, "expected an object")
	}

	res := AnalysisResult{
		ScanID: strings.TrimSpace(first(root, idPaths).String()),
		Class:  strings.TrimSpace(first(root, classPaths).String()),
	}
	if res.Class == "" {
		return AnalysisResult{}, malformed(op, "no disease class")
	}
	res.Confidence = parseConfidence(first(root, confidencePaths))

	if h := first(root, []string{"prediction.is_healthy", "is_healthy"}); h.Exists() {
		res.IsHealthy = h.Bool()
	} else {
		res.IsHealthy = storage.IsHealthyClass(res.Class)
	}
	res.Severity = strings.TrimSpace(first(root, []string{"prediction.severity", "severity"}).String())

	if v, ok := parseIndex(first(root, ndviPaths)); ok {
		res.NDVI = &v
	}
	if v, ok := parseIndex(first(root, []string{"vegetation_indices.ndwi", "ndwi"})); ok {
		res.NDWI = &v.Mean
	}

	vis := root.Get("visualization")
	if vis.IsObject() {
		vis = first(vis, []string{"url", "map_url", "path"})
	}
	res.Visualization = strings.TrimSpace(vis.String())

	res.Recommendations = stringList(root.Get("recommendations"))
	res.Advice = joinText(root.Get("advice"))
	return res, nil
}

func parseWeather(body string) (Weather, error) {
	const op = "weather"
	if !gjson.Valid(body) {
		return Weather{}, malformed(op, "body is not JSON")
	}
	root := gjson.Parse(body)
	temp := first(root, []string{"temp", "temperature"})
	cond := first(root, []string{"condition", "description"})
	if !temp.Exists() && !cond.Exists() {
		return Weather{}, malformed(op, "no temperature or condition")
	}
	return Weather{
		Temp:      temp.Float(),
		Condition: cond.String(),
		Advice:    root.Get("advice").String(),
		Icon:      root.Get("icon").String(),
	}, nil
}

// ToRecord turns an analysis result into the record stored in the history cache.
func ToRecord(res AnalysisResult, at time.Time) storage.ScanRecord {
	r := storage.ScanRecord{
		ID:         res.ScanID,
		Timestamp:  at.UTC(),
		Result:     res.Class,
		Confidence: res.Confidence,
		Advice:     res.Advice,
	}
	if r.Advice == "" && len(res.Recommendations) > 0 {
		r.Advice = strings.Join(res.Recommendations, " ")
	}
	if r.Advice == "" {
		r.Advice = advice.Text(res.Class, res.IsHealthy)
	}
	if res.NDVI != nil {
		mean := res.NDVI.Mean
		r.NDVI = &mean
	}
	switch {
	case res.IsHealthy:
		r.Status = "healthy"
	case res.Severity != "":
		r.Status = strings.ToLower(res.Severity)
	}
	return r
}
