package advice

import "testing"

func TestFor(t *testing.T) {
	tests := []struct {
		class   string
		healthy bool
		first   string
	}{
		{"Healthy", true, "Your crops appear healthy. Maintain current practices."},
		{"Maize Rust", false, "Apply fungicides at first sign of disease."},
		{"  GRAY LEAF SPOT ", false, "Use fungicide treatments in high-risk areas."},
		{"Common Rust", false, "Apply sulfur-based fungicide."},
		{"Northern Leaf Blight", false, "Remove infected leaves."},
		{"Streak Virus", false, "Isolate affected plants to prevent spread."},
		{"", false, "Isolate affected plants to prevent spread."},
	}

	for _, tc := range tests {
		got := For(tc.class, tc.healthy)
		if len(got) == 0 {
			t.Fatalf("For(%q) returned nothing", tc.class)
		}
		if got[0] != tc.first {
			t.Errorf("For(%q, %v)[0] = %q, want %q", tc.class, tc.healthy, got[0], tc.first)
		}
	}
}

func TestForReturnsCopy(t *testing.T) {
	a := For("Maize Rust", false)
	a[0] = "changed"
	if b := For("Maize Rust", false); b[0] == "changed" {
		t.Fatal("For leaked its internal table")
	}
}
