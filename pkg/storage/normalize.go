package storage

import "math"

// NormalizeConfidence converts a server confidence into the canonical 0-100 integer.
// Values up to 1 are fractions; anything above is already a percentage.
func NormalizeConfidence(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	c := int(math.Round(v))
	if c > 100 {
		return 100
	}
	return c
}

// NormalizeEpoch turns an epoch number into seconds and nanoseconds, accepting both
// second and millisecond precision.
func NormalizeEpoch(v float64) (sec int64, nsec int64) {
	if v > 1e12 {
		ms := int64(v)
		return ms / 1000, (ms % 1000) * int64(1e6)
	}
	s := math.Floor(v)
	return int64(s), int64((v - s) * 1e9)
}
