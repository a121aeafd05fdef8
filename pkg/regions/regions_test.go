package regions

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Centre", "Centre", true},
		{"  far north ", "Far North", true},
		{"Yaoundé", "Centre", true},
		{"yaounde", "Centre", true},
		{"NGAOUNDERE", "Adamawa", true},
		{"Limbe", "Southwest", true},
		{"Kousseri", "Far North", true},
		{"Lagos", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := Lookup(tc.in)
		if ok != tc.ok || got.Name != tc.want {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tc.in, got.Name, ok, tc.want, tc.ok)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Fatalf("Names() has %d entries, want 10", len(names))
	}
	if ends := []string{names[0], names[9]}; !reflect.DeepEqual(ends, []string{"Adamawa", "West"}) {
		t.Errorf("Names() ends = %v", ends)
	}
	if got := Default().Name; got != "Centre" {
		t.Errorf("Default() = %q, want Centre", got)
	}
}

func TestNearest(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{3.87, 11.52, "Centre"},
		{4.02, 9.75, "Littoral"},
		{10.6, 14.3, "Far North"},
		{4.15, 9.25, "Southwest"},
		{7.0, 13.5, "Adamawa"},
	}
	for _, tc := range tests {
		if got := Nearest(tc.lat, tc.lon).Name; got != tc.want {
			t.Errorf("Nearest(%v, %v) = %q, want %q", tc.lat, tc.lon, got, tc.want)
		}
	}
}

func TestFeatureCollection(t *testing.T) {
	data, err := json.Marshal(FeatureCollection())
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 10)
	assert.Equal(t, "Ngaoundéré", fc.Features[0].Properties["capital"])
	assert.Equal(t, []float64{13.5833, 7.3167}, fc.Features[0].Geometry.Coordinates)
}
