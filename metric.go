package rangesearch

import "math"

// Metric measures the distance between two points of equal dimensionality.
// Implementations must be symmetric, non-negative, deterministic, and free
// of side effects; tree pruning additionally relies on the triangle
// inequality.
type Metric interface {
	Distance(a, b []float64) float64
}

// MetricFunc adapts a plain function into a Metric.
//
// Custom metrics work with the ball, cover, and vp trees (their bounds only
// need the triangle inequality). The rectangle-bounded trees decompose
// distances along axes and therefore accept only the built-in
// Minkowski-family metrics.
type MetricFunc func(a, b []float64) float64

func (f MetricFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	var maxVal float64
	for i := range a {
		if v := math.Abs(a[i] - b[i]); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1. Panics if P < 1.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	if m.P < 1 {
		panic("rangesearch: MinkowskiMetric P must be >= 1")
	}
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), m.P)
	}
	return math.Pow(sum, 1.0/m.P)
}

// metricPower returns the Minkowski exponent used to aggregate per-dimension
// gaps in rectangle bounds: 2 for Euclidean, 1 for Manhattan, +Inf for
// Chebyshev. Returns false for metrics that do not decompose along axes.
func metricPower(m Metric) (float64, bool) {
	switch v := m.(type) {
	case EuclideanMetric:
		return 2.0, true
	case ManhattanMetric:
		return 1.0, true
	case ChebyshevMetric:
		return math.Inf(1), true
	case MinkowskiMetric:
		return v.P, true
	default:
		return 0, false
	}
}
