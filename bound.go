package rangesearch

import "math"

// Bound is a bounding volume enclosing every point of a tree node. Traversals
// prune and accept subtrees using only this interface: the minimum and
// maximum possible distance from a query point (or another bound) to any
// point inside. Implementations must be conservative, so that
// MinDistance <= true distance <= MaxDistance always holds.
type Bound interface {
	// Dim returns the dimensionality of the bounded space.
	Dim() int

	// Contains reports whether the point lies inside the volume.
	Contains(point []float64) bool

	// MinDistance returns a lower bound on the distance from point to any
	// point inside the volume.
	MinDistance(point []float64) float64

	// MaxDistance returns an upper bound on the distance from point to any
	// point inside the volume.
	MaxDistance(point []float64) float64

	// RangeDistance returns [MinDistance, MaxDistance] against a point.
	RangeDistance(point []float64) Range

	// MinDistanceBound returns a lower bound on the distance between any
	// point inside this volume and any point inside other. A bound of an
	// unrelated kind degrades to 0.
	MinDistanceBound(other Bound) float64

	// MaxDistanceBound returns an upper bound on the distance between any
	// point inside this volume and any point inside other. A bound of an
	// unrelated kind degrades to +Inf.
	MaxDistanceBound(other Bound) float64

	// RangeDistanceBound returns [MinDistanceBound, MaxDistanceBound].
	RangeDistanceBound(other Bound) Range
}

// HRectBound is an axis-aligned hyper-rectangle bound. Distances decompose
// along axes and aggregate with the Minkowski exponent of the tree's metric
// (2 for Euclidean, 1 for Manhattan, +Inf for Chebyshev).
type HRectBound struct {
	lo    []float64
	hi    []float64
	power float64
}

func newHRectBound(lo, hi []float64, power float64) *HRectBound {
	return &HRectBound{lo: lo, hi: hi, power: power}
}

// emptyHRectBound returns a rectangle ready to grow: +Inf corners on lo,
// -Inf on hi.
func emptyHRectBound(dims int, power float64) *HRectBound {
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}
	return &HRectBound{lo: lo, hi: hi, power: power}
}

// grow expands the rectangle to include point.
func (b *HRectBound) grow(point []float64) {
	for d, v := range point {
		if v < b.lo[d] {
			b.lo[d] = v
		}
		if v > b.hi[d] {
			b.hi[d] = v
		}
	}
}

// Lo returns the lower corner. The slice is owned by the bound.
func (b *HRectBound) Lo() []float64 { return b.lo }

// Hi returns the upper corner. The slice is owned by the bound.
func (b *HRectBound) Hi() []float64 { return b.hi }

func (b *HRectBound) Dim() int { return len(b.lo) }

func (b *HRectBound) Contains(point []float64) bool {
	for d, v := range point {
		if v < b.lo[d] || v > b.hi[d] {
			return false
		}
	}
	return true
}

// lpFold accumulates one per-dimension term g >= 0 into acc under the given
// exponent; lpFinish turns the accumulated value into a distance. Chebyshev
// (power +Inf) folds with max and finishes as identity.
func lpFold(acc, g, power float64) float64 {
	switch {
	case math.IsInf(power, 1):
		return math.Max(acc, g)
	case power == 1:
		return acc + g
	case power == 2:
		return acc + g*g
	default:
		return acc + math.Pow(g, power)
	}
}

func lpFinish(acc, power float64) float64 {
	switch {
	case math.IsInf(power, 1):
		return acc
	case power == 1:
		return acc
	case power == 2:
		return math.Sqrt(acc)
	default:
		return math.Pow(acc, 1.0/power)
	}
}

func (b *HRectBound) MinDistance(point []float64) float64 {
	var acc float64
	for d, v := range point {
		var g float64
		if v < b.lo[d] {
			g = b.lo[d] - v
		} else if v > b.hi[d] {
			g = v - b.hi[d]
		}
		acc = lpFold(acc, g, b.power)
	}
	return lpFinish(acc, b.power)
}

func (b *HRectBound) MaxDistance(point []float64) float64 {
	var acc float64
	for d, v := range point {
		g := math.Max(v-b.lo[d], b.hi[d]-v)
		acc = lpFold(acc, g, b.power)
	}
	return lpFinish(acc, b.power)
}

func (b *HRectBound) RangeDistance(point []float64) Range {
	return Range{Lo: b.MinDistance(point), Hi: b.MaxDistance(point)}
}

func (b *HRectBound) MinDistanceBound(other Bound) float64 {
	o, ok := other.(*HRectBound)
	if !ok {
		return 0
	}
	var acc float64
	for d := range b.lo {
		// Gap between the rectangles along dimension d; 0 when they overlap.
		g := math.Max(b.lo[d]-o.hi[d], math.Max(o.lo[d]-b.hi[d], 0))
		acc = lpFold(acc, g, b.power)
	}
	return lpFinish(acc, b.power)
}

func (b *HRectBound) MaxDistanceBound(other Bound) float64 {
	o, ok := other.(*HRectBound)
	if !ok {
		return math.Inf(1)
	}
	var acc float64
	for d := range b.lo {
		g := math.Max(b.hi[d]-o.lo[d], o.hi[d]-b.lo[d])
		acc = lpFold(acc, g, b.power)
	}
	return lpFinish(acc, b.power)
}

func (b *HRectBound) RangeDistanceBound(other Bound) Range {
	return Range{Lo: b.MinDistanceBound(other), Hi: b.MaxDistanceBound(other)}
}
