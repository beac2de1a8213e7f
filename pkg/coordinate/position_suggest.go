package coordinate

import "math"

// SuggestNear averages the positions of related points in Cartesian
// space (so angular averaging wraps correctly around the seam) and
// returns a candidate position for a new point placed near them, at the
// given time. Grounded on the original project's PositionCalculator,
// which performs the same polar->Cartesian->polar round trip to avoid
// naively averaging angles across the 0/2π boundary.
func SuggestNear(related []Position, t float64) Position {
	if len(related) == 0 {
		return Position{T: t}
	}

	var x, y float64
	for _, p := range related {
		x += p.R * math.Cos(p.Theta)
		y += p.R * math.Sin(p.Theta)
	}
	n := float64(len(related))
	x, y = x/n, y/n

	r := math.Hypot(x, y)
	theta := NormalizeTheta(math.Atan2(y, x))
	return Position{T: t, R: r, Theta: theta}
}
