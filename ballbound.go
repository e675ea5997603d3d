package rangesearch

import "math"

// BallBound bounds a node with a center point and radius. Validity only
// requires the metric to satisfy the triangle inequality, so ball-family
// trees carry custom metrics that rectangle bounds cannot.
type BallBound struct {
	center []float64
	radius float64
	metric Metric
}

func newBallBound(center []float64, radius float64, metric Metric) *BallBound {
	c := make([]float64, len(center))
	copy(c, center)
	return &BallBound{center: c, radius: radius, metric: metric}
}

// Center returns the ball center. The slice is owned by the bound.
func (b *BallBound) Center() []float64 { return b.center }

// Radius returns the ball radius.
func (b *BallBound) Radius() float64 { return b.radius }

func (b *BallBound) Dim() int { return len(b.center) }

func (b *BallBound) Contains(point []float64) bool {
	return b.metric.Distance(b.center, point) <= b.radius
}

func (b *BallBound) MinDistance(point []float64) float64 {
	return math.Max(0, b.metric.Distance(b.center, point)-b.radius)
}

func (b *BallBound) MaxDistance(point []float64) float64 {
	return b.metric.Distance(b.center, point) + b.radius
}

func (b *BallBound) RangeDistance(point []float64) Range {
	d := b.metric.Distance(b.center, point)
	return Range{Lo: math.Max(0, d-b.radius), Hi: d + b.radius}
}

func (b *BallBound) MinDistanceBound(other Bound) float64 {
	switch o := other.(type) {
	case *BallBound:
		d := b.metric.Distance(b.center, o.center)
		return math.Max(0, d-b.radius-o.radius)
	case *HollowBallBound:
		d := b.metric.Distance(b.center, o.center)
		return math.Max(0, math.Max(d-b.radius-o.outer, o.inner-d-b.radius))
	default:
		return 0
	}
}

func (b *BallBound) MaxDistanceBound(other Bound) float64 {
	switch o := other.(type) {
	case *BallBound:
		return b.metric.Distance(b.center, o.center) + b.radius + o.radius
	case *HollowBallBound:
		return b.metric.Distance(b.center, o.center) + b.radius + o.outer
	default:
		return math.Inf(1)
	}
}

func (b *BallBound) RangeDistanceBound(other Bound) Range {
	return Range{Lo: b.MinDistanceBound(other), Hi: b.MaxDistanceBound(other)}
}

// HollowBallBound bounds a node with a spherical shell around a vantage
// point: every bounded point lies at a center distance within
// [inner, outer]. The inner radius is what lets a vantage tree prune the
// cavity around its vantage point.
type HollowBallBound struct {
	center []float64
	inner  float64
	outer  float64
	metric Metric
}

func newHollowBallBound(center []float64, inner, outer float64, metric Metric) *HollowBallBound {
	c := make([]float64, len(center))
	copy(c, center)
	return &HollowBallBound{center: c, inner: inner, outer: outer, metric: metric}
}

// Center returns the shell center. The slice is owned by the bound.
func (b *HollowBallBound) Center() []float64 { return b.center }

// Inner returns the inner shell radius.
func (b *HollowBallBound) Inner() float64 { return b.inner }

// Outer returns the outer shell radius.
func (b *HollowBallBound) Outer() float64 { return b.outer }

func (b *HollowBallBound) Dim() int { return len(b.center) }

func (b *HollowBallBound) Contains(point []float64) bool {
	d := b.metric.Distance(b.center, point)
	return b.inner <= d && d <= b.outer
}

func (b *HollowBallBound) MinDistance(point []float64) float64 {
	d := b.metric.Distance(b.center, point)
	return math.Max(0, math.Max(d-b.outer, b.inner-d))
}

func (b *HollowBallBound) MaxDistance(point []float64) float64 {
	return b.metric.Distance(b.center, point) + b.outer
}

func (b *HollowBallBound) RangeDistance(point []float64) Range {
	d := b.metric.Distance(b.center, point)
	return Range{
		Lo: math.Max(0, math.Max(d-b.outer, b.inner-d)),
		Hi: d + b.outer,
	}
}

func (b *HollowBallBound) MinDistanceBound(other Bound) float64 {
	switch o := other.(type) {
	case *HollowBallBound:
		d := b.metric.Distance(b.center, o.center)
		lo := math.Max(d-b.outer-o.outer, b.inner-d-o.outer)
		lo = math.Max(lo, o.inner-d-b.outer)
		return math.Max(0, lo)
	case *BallBound:
		d := b.metric.Distance(b.center, o.center)
		return math.Max(0, math.Max(d-b.outer-o.radius, b.inner-d-o.radius))
	default:
		return 0
	}
}

func (b *HollowBallBound) MaxDistanceBound(other Bound) float64 {
	switch o := other.(type) {
	case *HollowBallBound:
		return b.metric.Distance(b.center, o.center) + b.outer + o.outer
	case *BallBound:
		return b.metric.Distance(b.center, o.center) + b.outer + o.radius
	default:
		return math.Inf(1)
	}
}

func (b *HollowBallBound) RangeDistanceBound(other Bound) Range {
	return Range{Lo: b.MinDistanceBound(other), Hi: b.MaxDistanceBound(other)}
}
