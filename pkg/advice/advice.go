// Package advice holds the fallback recommendations shown when the analysis service does
// not send any.
package advice

import "strings"

var healthy = []string{
	"Your crops appear healthy. Maintain current practices.",
	"Continue regular monitoring for early detection.",
	"Ensure proper irrigation and fertilization.",
}

var generic = []string{
	"Isolate affected plants to prevent spread.",
	"Consult with agricultural extension services.",
	"Consider soil testing for nutrient imbalances.",
}

// Keyed by lowercase class name as returned by the model.
var byClass = map[string][]string{
	"maize leafblight": {
		"Apply fungicides containing chlorothalonil or mancozeb.",
		"Remove and destroy infected plant debris.",
		"Rotate crops with non-host species for 2-3 years.",
	},
	"maize rust": {
		"Apply fungicides at first sign of disease.",
		"Plant resistant varieties if available.",
		"Avoid overhead irrigation to reduce leaf wetness.",
	},
	"gray leaf spot": {
		"Use fungicide treatments in high-risk areas.",
		"Implement crop rotation with non-grass crops.",
		"Space plants adequately for better air circulation.",
	},
}

// Shorter families used by the image classifier. Checked in order, first substring hit wins.
var byFamily = []struct {
	key  string
	tips []string
}{
	{"rust", []string{
		"Apply sulfur-based fungicide.",
		"Improve airflow between plants.",
		"Avoid watering leaves late in the day.",
	}},
	{"blight", []string{
		"Remove infected leaves.",
		"Apply copper-based fungicide.",
		"Rotate crops every season.",
	}},
	{"leaf spot", []string{
		"Use disease-free seeds.",
		"Apply appropriate fungicides.",
		"Control weeds that host pathogens.",
	}},
}

// For returns recommendations for a diagnosis. It never returns an empty list.
func For(class string, isHealthy bool) []string {
	if isHealthy {
		return clone(healthy)
	}
	c := strings.ToLower(strings.TrimSpace(class))
	if tips, ok := byClass[c]; ok {
		return clone(tips)
	}
	for _, f := range byFamily {
		if strings.Contains(c, f.key) {
			return clone(f.tips)
		}
	}
	return clone(generic)
}

// Text joins the recommendations for a diagnosis into one line.
func Text(class string, isHealthy bool) string {
	return strings.Join(For(class, isHealthy), " ")
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
