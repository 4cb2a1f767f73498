package geo

import "math"

// RoundHalfUp rounds to the nearest integer with ties going towards positive infinity,
// so -0.5 becomes 0 and not -1.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Clamp restricts v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// SnapToGrid rounds v to the nearest multiple of unit.
func SnapToGrid(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	return RoundHalfUp(v/unit) * unit
}

// FloorToGrid returns the largest multiple of unit that is <= v.
func FloorToGrid(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	return math.Floor(v/unit) * unit
}

func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
