package coordinate

import "math"

// Rectangle is a minimum bounding rectangle (MBR) over (t, r, θ).
//
// MinTheta > MaxTheta denotes a wrap-around range covering
// [MinTheta, 2π) ∪ [0, MaxTheta], the convention used throughout the
// spatial index to describe angular ranges that cross the 0/2π seam.
type Rectangle struct {
	MinT, MaxT       float64
	MinR, MaxR       float64
	MinTheta, MaxTheta float64
}

// NewRectangle builds a Rectangle, swapping reversed t/r bounds and
// normalizing both angular bounds to [0, 2π). It does not itself decide
// whether the result is wrap-around; that falls out of the normalized
// MinTheta/MaxTheta order, per the package convention.
func NewRectangle(minT, maxT, minR, maxR, minTheta, maxTheta float64) Rectangle {
	if minT > maxT {
		minT, maxT = maxT, minT
	}
	if minR > maxR {
		minR, maxR = maxR, minR
	}
	return Rectangle{
		MinT: minT, MaxT: maxT,
		MinR: minR, MaxR: maxR,
		MinTheta: NormalizeTheta(minTheta),
		MaxTheta: NormalizeTheta(maxTheta),
	}
}

// FromPosition returns the degenerate (zero-volume) rectangle around a
// single point, the starting MBR for a freshly inserted R-tree entry.
func FromPosition(p Position) Rectangle {
	return Rectangle{
		MinT: p.T, MaxT: p.T,
		MinR: p.R, MaxR: p.R,
		MinTheta: p.Theta, MaxTheta: p.Theta,
	}
}

// wrapsAround reports whether this rectangle uses the wrap-around
// angular convention (MinTheta > MaxTheta).
func (r Rectangle) wrapsAround() bool {
	return r.MinTheta > r.MaxTheta
}

// Contains reports whether p lies within the rectangle on all three axes.
func (r Rectangle) Contains(p Position) bool {
	if p.T < r.MinT || p.T > r.MaxT {
		return false
	}
	if p.R < r.MinR || p.R > r.MaxR {
		return false
	}
	theta := NormalizeTheta(p.Theta)
	if !r.wrapsAround() {
		return theta >= r.MinTheta && theta <= r.MaxTheta
	}
	return !(theta < r.MinTheta && theta > r.MaxTheta)
}

// Intersects reports whether r and other overlap on every axis.
func (r Rectangle) Intersects(other Rectangle) bool {
	if r.MaxT < other.MinT || r.MinT > other.MaxT {
		return false
	}
	if r.MaxR < other.MinR || r.MinR > other.MaxR {
		return false
	}

	rWraps, oWraps := r.wrapsAround(), other.wrapsAround()
	switch {
	case !rWraps && !oWraps:
		return !(r.MaxTheta < other.MinTheta || r.MinTheta > other.MaxTheta)
	case !rWraps && oWraps:
		return !(r.MaxTheta < other.MinTheta && r.MinTheta > other.MaxTheta)
	case rWraps && !oWraps:
		return !(other.MaxTheta < r.MinTheta && other.MinTheta > r.MaxTheta)
	default:
		// Both wrap: each covers the 0/2π seam, so they always share it.
		return true
	}
}

// Area returns the rectangle's volume, used to rank split/insert choices.
// The angular extent is treated linearly (not scaled by r²) to keep the
// comparison cheap; only relative ordering between candidate MBRs matters.
func (r Rectangle) Area() float64 {
	tSize := r.MaxT - r.MinT
	rSize := r.MaxR - r.MinR
	thetaSize := r.thetaSize()
	return tSize * rSize * thetaSize
}

// Margin returns the sum of the rectangle's edge lengths, a cheaper
// proxy than Area for some split heuristics.
func (r Rectangle) Margin() float64 {
	return (r.MaxT - r.MinT) + (r.MaxR - r.MinR) + r.thetaSize()
}

func (r Rectangle) thetaSize() float64 {
	if !r.wrapsAround() {
		return r.MaxTheta - r.MinTheta
	}
	return twoPi - (r.MinTheta - r.MaxTheta)
}

// Enlarge returns the smallest rectangle that contains both r and p.
func (r Rectangle) Enlarge(p Position) Rectangle {
	minT, maxT := math.Min(r.MinT, p.T), math.Max(r.MaxT, p.T)
	minR, maxR := math.Min(r.MinR, p.R), math.Max(r.MaxR, p.R)

	theta := NormalizeTheta(p.Theta)
	minTheta, maxTheta := r.MinTheta, r.MaxTheta

	if !r.wrapsAround() {
		if theta < r.MinTheta || theta > r.MaxTheta {
			enlargeMin := NormalizeTheta(r.MinTheta - theta)
			enlargeMax := NormalizeTheta(theta - r.MaxTheta)
			if enlargeMin <= enlargeMax {
				minTheta = theta
			} else {
				maxTheta = theta
			}
		}
	} else if theta > r.MaxTheta && theta < r.MinTheta {
		enlargeMin := NormalizeTheta(theta - r.MaxTheta)
		enlargeMax := NormalizeTheta(r.MinTheta - theta)
		if enlargeMin <= enlargeMax {
			maxTheta = theta
		} else {
			minTheta = theta
		}
	}

	return Rectangle{
		MinT: minT, MaxT: maxT,
		MinR: minR, MaxR: maxR,
		MinTheta: minTheta, MaxTheta: maxTheta,
	}
}

// Merge returns the smallest rectangle containing both r and other.
func (r Rectangle) Merge(other Rectangle) Rectangle {
	minT, maxT := math.Min(r.MinT, other.MinT), math.Max(r.MaxT, other.MaxT)
	minR, maxR := math.Min(r.MinR, other.MinR), math.Max(r.MaxR, other.MaxR)

	rWraps, oWraps := r.wrapsAround(), other.wrapsAround()
	var minTheta, maxTheta float64

	switch {
	case !rWraps && !oWraps:
		if r.MaxTheta < other.MinTheta || other.MaxTheta < r.MinTheta {
			gap1 := NormalizeTheta(other.MinTheta - r.MaxTheta)
			gap2 := NormalizeTheta(r.MinTheta - other.MaxTheta)
			if gap1 <= gap2 {
				minTheta, maxTheta = r.MinTheta, other.MaxTheta
			} else {
				minTheta, maxTheta = other.MinTheta, r.MaxTheta
			}
		} else {
			minTheta = math.Min(r.MinTheta, other.MinTheta)
			maxTheta = math.Max(r.MaxTheta, other.MaxTheta)
		}
	case rWraps && oWraps:
		minTheta = math.Min(r.MinTheta, other.MinTheta)
		maxTheta = math.Max(r.MaxTheta, other.MaxTheta)
	default:
		wrap, normal := r, other
		if oWraps {
			wrap, normal = other, r
		}
		minTheta, maxTheta = wrap.MinTheta, wrap.MaxTheta
		startsIn, endsIn := normal.MinTheta <= wrap.MaxTheta, normal.MaxTheta >= wrap.MinTheta
		if startsIn {
			maxTheta = math.Max(maxTheta, normal.MaxTheta)
		}
		if endsIn {
			minTheta = math.Min(minTheta, normal.MinTheta)
		}
		if !startsIn && !endsIn {
			// Normal range sits inside the wrap gap: extend the cheaper side.
			if normal.MaxTheta-wrap.MaxTheta <= wrap.MinTheta-normal.MinTheta {
				maxTheta = normal.MaxTheta
			} else {
				minTheta = normal.MinTheta
			}
		}
	}
	if (rWraps || oWraps) && minTheta <= maxTheta {
		// The two arcs together cover the whole circle.
		minTheta, maxTheta = 0, twoPi
	}

	return Rectangle{
		MinT: minT, MaxT: maxT,
		MinR: minR, MaxR: maxR,
		MinTheta: minTheta, MaxTheta: maxTheta,
	}
}

// MinDistance returns a lower-bound estimate of the distance from p to
// the closest point inside r, used to rank and prune R-tree subtrees
// during a k-nearest-neighbors search. It clamps each axis independently
// rather than solving the true cylindrical distance to a closest point,
// so it is cheap but approximate — the same trade the original source
// algorithm makes.
func (r Rectangle) MinDistance(p Position, w Weights) float64 {
	if r.Contains(p) {
		return 0
	}

	var tDist float64
	switch {
	case p.T < r.MinT:
		tDist = r.MinT - p.T
	case p.T > r.MaxT:
		tDist = p.T - r.MaxT
	}

	var rDist float64
	switch {
	case p.R < r.MinR:
		rDist = r.MinR - p.R
	case p.R > r.MaxR:
		rDist = p.R - r.MaxR
	}

	theta := NormalizeTheta(p.Theta)
	var thetaDist float64
	if !r.wrapsAround() {
		switch {
		case theta < r.MinTheta:
			thetaDist = math.Min(r.MinTheta-theta, theta+twoPi-r.MaxTheta)
		case theta > r.MaxTheta:
			thetaDist = math.Min(theta-r.MaxTheta, r.MinTheta+twoPi-theta)
		}
	} else if theta > r.MaxTheta && theta < r.MinTheta {
		thetaDist = math.Min(theta-r.MaxTheta, r.MinTheta-theta)
	}

	tDist *= w.T
	rDist *= w.R
	thetaDist *= w.Theta

	return math.Sqrt(tDist*tDist + rDist*rDist + thetaDist*thetaDist)
}
