// Package regions lists the Cameroon regions the scene search understands.
package regions

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/unicode/norm"
)

type Region struct {
	Name    string
	Capital string
	// Second town accepted as an alias for the region
	Town     string
	Location orb.Point // lon, lat of the capital
	Color    string
}

// Lat and Lon are shorthands over the orb point.
func (r Region) Lat() float64 { return r.Location.Lat() }
func (r Region) Lon() float64 { return r.Location.Lon() }

var all = []Region{
	{"Adamawa", "Ngaoundéré", "Meiganga", orb.Point{13.5833, 7.3167}, "#4CAF50"},
	{"Centre", "Yaoundé", "Mbalmayo", orb.Point{11.5167, 3.8667}, "#2196F3"},
	{"East", "Bertoua", "Batouri", orb.Point{13.6833, 4.5833}, "#FF9800"},
	{"Far North", "Maroua", "Kousséri", orb.Point{14.3247, 10.5956}, "#9C27B0"},
	{"Littoral", "Douala", "Nkongsamba", orb.Point{9.7000, 4.0500}, "#009688"},
	{"North", "Garoua", "Guider", orb.Point{13.4000, 9.3000}, "#795548"},
	{"Northwest", "Bamenda", "Kumbo", orb.Point{10.1667, 5.9333}, "#607D8B"},
	{"South", "Ebolowa", "Kribi", orb.Point{11.1500, 2.9167}, "#3F51B5"},
	{"Southwest", "Buea", "Limbe", orb.Point{9.2333, 4.1667}, "#FF5722"},
	{"West", "Bafoussam", "Dschang", orb.Point{10.4167, 5.4667}, "#E91E63"},
}

// All returns every region in display order.
func All() []Region {
	return append([]Region(nil), all...)
}

// Names returns the region names in display order.
func Names() []string {
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.Name
	}
	return out
}

// Default is the region used when nothing else is known.
func Default() Region {
	return all[1]
}

// Lookup resolves a region by its name, capital or secondary town. Case and accents are
// ignored, so "yaounde" finds Centre.
func Lookup(name string) (Region, bool) {
	key := fold(name)
	if key == "" {
		return Region{}, false
	}
	for _, r := range all {
		if fold(r.Name) == key || fold(r.Capital) == key || fold(r.Town) == key {
			return r, true
		}
	}
	return Region{}, false
}

// Nearest returns the region whose capital is closest to the given coordinates.
func Nearest(lat, lon float64) Region {
	p := orb.Point{lon, lat}
	best, bestDist := all[0], math.MaxFloat64
	for _, r := range all {
		if d := geo.Distance(p, r.Location); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

// FeatureCollection renders every region capital as a GeoJSON point.
func FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range all {
		f := geojson.NewFeature(r.Location)
		f.Properties["name"] = r.Name
		f.Properties["capital"] = r.Capital
		f.Properties["town"] = r.Town
		f.Properties["color"] = r.Color
		fc.Append(f)
	}
	return fc
}

// fold lowercases s and strips combining accents.
func fold(s string) string {
	d := norm.NFD.String(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	for _, r := range d {
		if r >= 0x300 && r <= 0x36f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
