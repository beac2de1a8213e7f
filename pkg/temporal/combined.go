package temporal

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/cylindb/pkg/coordinate"
	"github.com/orneryd/cylindb/pkg/cylindb"
	"github.com/orneryd/cylindb/pkg/spatial"
)

// TimeRange is an inclusive [Lo, Hi] timestamp bound.
type TimeRange struct {
	Lo, Hi float64
}

// KNNQuery asks for the K nearest indexed positions to Point.
type KNNQuery struct {
	Point coordinate.Position
	K     int
}

// Query parameterizes a combined lookup over any subset of a time
// range, a spatial rectangle, and a k-nearest request, per spec.md
// §4.4. At least one field must be set.
type Query struct {
	TimeRange   *TimeRange
	SpatialRect *coordinate.Rectangle
	KNN         *KNNQuery
}

// DefaultOverFetchFactor is the growth rate applied to k' when a
// time-constrained kNN search's first pass doesn't satisfy the
// caller's k, per spec.md §4.4.
const DefaultOverFetchFactor = 2

// Combined is the C7 front-end: it wires a temporal Index to a
// spatial.Tree and picks an evaluation order for mixed queries by
// comparing cheap candidate-count estimates from each side, rather
// than always favoring one index.
type Combined struct {
	Temporal        *Index
	Spatial         *spatial.Tree
	OverFetchFactor int
}

// NewCombined wires idx and tree together with the default over-fetch
// factor.
func NewCombined(idx *Index, tree *spatial.Tree) *Combined {
	return &Combined{Temporal: idx, Spatial: tree, OverFetchFactor: DefaultOverFetchFactor}
}

// Query runs q and returns the matching node ids (or, for a KNN query,
// the ids of its ordered nearest-neighbor results).
func (c *Combined) Query(q Query) ([]uuid.UUID, error) {
	if q.KNN != nil {
		neighbors, err := c.knn(*q.KNN, q.TimeRange)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(neighbors))
		for i, n := range neighbors {
			ids[i] = n.NodeID
		}
		return ids, nil
	}

	switch {
	case q.TimeRange != nil && q.SpatialRect != nil:
		return c.intersect(*q.TimeRange, *q.SpatialRect), nil
	case q.TimeRange != nil:
		return c.Temporal.Range(q.TimeRange.Lo, q.TimeRange.Hi), nil
	case q.SpatialRect != nil:
		return c.Spatial.RangeQuery(*q.SpatialRect), nil
	default:
		return nil, fmt.Errorf("%w: combined query has no predicate", cylindb.ErrInvariantViolation)
	}
}

// intersect evaluates the smaller-estimated side of a mixed
// time-range + spatial-rectangle query first, then filters those
// candidates against the other predicate, per spec.md §4.4.
func (c *Combined) intersect(tr TimeRange, rect coordinate.Rectangle) []uuid.UUID {
	temporalEstimate := c.Temporal.EstimateRange(tr.Lo, tr.Hi)
	spatialEstimate := c.Spatial.EstimateIntersecting(rect)

	if temporalEstimate <= spatialEstimate {
		return c.filterBySpatial(c.Temporal.Range(tr.Lo, tr.Hi), rect)
	}
	return c.filterByTemporal(c.Spatial.RangeQuery(rect), tr)
}

func (c *Combined) filterBySpatial(ids []uuid.UUID, rect coordinate.Rectangle) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if pos, ok := c.Spatial.Position(id); ok && rect.Contains(pos) {
			out = append(out, id)
		}
	}
	return out
}

func (c *Combined) filterByTemporal(ids []uuid.UUID, tr TimeRange) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if pos, ok := c.Spatial.Position(id); ok && pos.T >= tr.Lo && pos.T <= tr.Hi {
			out = append(out, id)
		}
	}
	return out
}

// knn runs a kNN search, optionally constrained to a time range: it
// requests an ever-larger candidate set k' = k * over-fetch-factor
// from the R-tree and filters by t until the caller's k is satisfied
// or the tree is exhausted, per spec.md §4.4.
func (c *Combined) knn(q KNNQuery, tr *TimeRange) ([]spatial.Neighbor, error) {
	if tr == nil {
		return c.Spatial.NearestNeighbors(q.Point, q.K), nil
	}
	if q.K <= 0 {
		return nil, nil
	}

	factor := c.OverFetchFactor
	if factor < 2 {
		factor = 2
	}
	maxK := c.Spatial.Len()
	kPrime := q.K

	for {
		candidates := c.Spatial.NearestNeighbors(q.Point, kPrime)
		filtered := make([]spatial.Neighbor, 0, q.K)
		for _, cand := range candidates {
			pos, ok := c.Spatial.Position(cand.NodeID)
			if ok && pos.T >= tr.Lo && pos.T <= tr.Hi {
				filtered = append(filtered, cand)
			}
		}

		exhausted := kPrime >= maxK
		if len(filtered) >= q.K || exhausted {
			if len(filtered) > q.K {
				filtered = filtered[:q.K]
			}
			return filtered, nil
		}

		kPrime *= factor
		if kPrime > maxK {
			kPrime = maxK
		}
	}
}
