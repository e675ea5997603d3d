package rangesearch

import (
	"math"
	"math/rand"
	"testing"
)

// --- HRectBound tests ---

func TestHRectBound_GrowAndContains(t *testing.T) {
	b := emptyHRectBound(2, 2)
	b.grow([]float64{1, 4})
	b.grow([]float64{3, 0})

	if b.Lo()[0] != 1 || b.Lo()[1] != 0 {
		t.Errorf("Lo() = %v, want [1 0]", b.Lo())
	}
	if b.Hi()[0] != 3 || b.Hi()[1] != 4 {
		t.Errorf("Hi() = %v, want [3 4]", b.Hi())
	}

	if !b.Contains([]float64{2, 2}) {
		t.Error("interior point should be contained")
	}
	if !b.Contains([]float64{1, 0}) {
		t.Error("corner point should be contained")
	}
	if b.Contains([]float64{0.5, 2}) {
		t.Error("outside point should not be contained")
	}
}

func TestHRectBound_MinDistance_Euclidean(t *testing.T) {
	b := newHRectBound([]float64{0, 0}, []float64{1, 1}, 2)

	// Outside along one axis: gap (1, 0).
	if d := b.MinDistance([]float64{2, 0.5}); !almostEqual(d, 1, floatTol) {
		t.Errorf("MinDistance = %v, want 1", d)
	}
	// Outside along both axes: gap (1, 1) -> sqrt(2).
	if d := b.MinDistance([]float64{2, 2}); !almostEqual(d, math.Sqrt(2), floatTol) {
		t.Errorf("MinDistance = %v, want sqrt(2)", d)
	}
	// Inside: 0.
	if d := b.MinDistance([]float64{0.5, 0.5}); d != 0 {
		t.Errorf("MinDistance = %v, want 0", d)
	}
}

func TestHRectBound_MaxDistance_Euclidean(t *testing.T) {
	b := newHRectBound([]float64{0, 0}, []float64{1, 1}, 2)

	// Farthest corner from (2, 2) is (0, 0): sqrt(8).
	if d := b.MaxDistance([]float64{2, 2}); !almostEqual(d, math.Sqrt(8), floatTol) {
		t.Errorf("MaxDistance = %v, want sqrt(8)", d)
	}
	// Inside point: farthest corner is (1, 1), gaps (0.75, 0.75).
	want := math.Sqrt(2 * 0.75 * 0.75)
	if d := b.MaxDistance([]float64{0.25, 0.25}); !almostEqual(d, want, floatTol) {
		t.Errorf("MaxDistance = %v, want %v", d, want)
	}
}

func TestHRectBound_ManhattanAndChebyshevPowers(t *testing.T) {
	pt := []float64{2, 2}

	l1 := newHRectBound([]float64{0, 0}, []float64{1, 1}, 1)
	if d := l1.MinDistance(pt); !almostEqual(d, 2, floatTol) {
		t.Errorf("L1 MinDistance = %v, want 2", d)
	}
	if d := l1.MaxDistance(pt); !almostEqual(d, 4, floatTol) {
		t.Errorf("L1 MaxDistance = %v, want 4", d)
	}

	linf := newHRectBound([]float64{0, 0}, []float64{1, 1}, math.Inf(1))
	if d := linf.MinDistance(pt); !almostEqual(d, 1, floatTol) {
		t.Errorf("Linf MinDistance = %v, want 1", d)
	}
	if d := linf.MaxDistance(pt); !almostEqual(d, 2, floatTol) {
		t.Errorf("Linf MaxDistance = %v, want 2", d)
	}
}

func TestHRectBound_RectToRect(t *testing.T) {
	a := newHRectBound([]float64{0, 0}, []float64{1, 1}, 2)
	b := newHRectBound([]float64{3, 0}, []float64{4, 1}, 2)

	// Gap along x is 2, overlap along y.
	if d := a.MinDistanceBound(b); !almostEqual(d, 2, floatTol) {
		t.Errorf("MinDistanceBound = %v, want 2", d)
	}
	// Farthest corners (0,0)..(4,1) and (1,1)..(3,0) both give gaps (4, 1).
	if d := a.MaxDistanceBound(b); !almostEqual(d, math.Sqrt(17), floatTol) {
		t.Errorf("MaxDistanceBound = %v, want sqrt(17)", d)
	}

	overlapping := newHRectBound([]float64{0.5, 0.5}, []float64{2, 2}, 2)
	if d := a.MinDistanceBound(overlapping); d != 0 {
		t.Errorf("MinDistanceBound of overlapping rects = %v, want 0", d)
	}
}

// --- BallBound tests ---

func TestBallBound_PointDistances(t *testing.T) {
	b := newBallBound([]float64{0, 0}, 2, EuclideanMetric{})

	if d := b.MinDistance([]float64{5, 0}); !almostEqual(d, 3, floatTol) {
		t.Errorf("MinDistance = %v, want 3", d)
	}
	if d := b.MaxDistance([]float64{5, 0}); !almostEqual(d, 7, floatTol) {
		t.Errorf("MaxDistance = %v, want 7", d)
	}
	// Inside the ball the minimum is clamped to 0.
	if d := b.MinDistance([]float64{1, 0}); d != 0 {
		t.Errorf("MinDistance inside = %v, want 0", d)
	}
	if !b.Contains([]float64{2, 0}) {
		t.Error("boundary point should be contained")
	}
	if b.Contains([]float64{2.1, 0}) {
		t.Error("outside point should not be contained")
	}
}

func TestBallBound_BallToBall(t *testing.T) {
	a := newBallBound([]float64{0, 0}, 1, EuclideanMetric{})
	b := newBallBound([]float64{5, 0}, 1, EuclideanMetric{})

	if d := a.MinDistanceBound(b); !almostEqual(d, 3, floatTol) {
		t.Errorf("MinDistanceBound = %v, want 3", d)
	}
	if d := a.MaxDistanceBound(b); !almostEqual(d, 7, floatTol) {
		t.Errorf("MaxDistanceBound = %v, want 7", d)
	}

	c := newBallBound([]float64{1, 0}, 2, EuclideanMetric{})
	if d := a.MinDistanceBound(c); d != 0 {
		t.Errorf("MinDistanceBound of overlapping balls = %v, want 0", d)
	}
}

// --- HollowBallBound tests ---

func TestHollowBallBound_PointDistances(t *testing.T) {
	b := newHollowBallBound([]float64{0, 0}, 2, 4, EuclideanMetric{})

	// Inside the cavity: nearest shell point is at the inner radius.
	if d := b.MinDistance([]float64{1, 0}); !almostEqual(d, 1, floatTol) {
		t.Errorf("MinDistance in cavity = %v, want 1", d)
	}
	// Within the shell itself.
	if d := b.MinDistance([]float64{3, 0}); d != 0 {
		t.Errorf("MinDistance in shell = %v, want 0", d)
	}
	// Beyond the outer radius.
	if d := b.MinDistance([]float64{6, 0}); !almostEqual(d, 2, floatTol) {
		t.Errorf("MinDistance outside = %v, want 2", d)
	}
	if d := b.MaxDistance([]float64{1, 0}); !almostEqual(d, 5, floatTol) {
		t.Errorf("MaxDistance = %v, want 5", d)
	}

	if b.Contains([]float64{1, 0}) {
		t.Error("cavity point should not be contained")
	}
	if !b.Contains([]float64{3, 0}) {
		t.Error("shell point should be contained")
	}
	if b.Contains([]float64{5, 0}) {
		t.Error("outside point should not be contained")
	}
}

// --- Cross-kind fallback tests ---

func TestBound_CrossKindFallbacksAreConservative(t *testing.T) {
	rect := newHRectBound([]float64{0, 0}, []float64{1, 1}, 2)
	ball := newBallBound([]float64{10, 10}, 1, EuclideanMetric{})
	shell := newHollowBallBound([]float64{10, 10}, 1, 2, EuclideanMetric{})

	pairs := []struct {
		name string
		a, b Bound
	}{
		{"rect-ball", rect, ball},
		{"rect-shell", rect, shell},
		{"ball-rect", ball, rect},
		{"shell-rect", shell, rect},
	}
	for _, p := range pairs {
		if d := p.a.MinDistanceBound(p.b); d != 0 {
			t.Errorf("%s: MinDistanceBound = %v, want the conservative 0", p.name, d)
		}
		if d := p.a.MaxDistanceBound(p.b); !math.IsInf(d, 1) {
			t.Errorf("%s: MaxDistanceBound = %v, want the conservative +Inf", p.name, d)
		}
	}
}

// --- Bracketing property tests ---

// Bounds must bracket every true distance: MinDistance <= d <= MaxDistance
// for points, and likewise between bounds for every cross pair.

func clusterPoints(rng *rand.Rand, cx, cy float64, n int) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = []float64{cx + rng.Float64()*2, cy + rng.Float64()*2}
	}
	return pts
}

func TestHRectBound_BracketsTrueDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cluster := clusterPoints(rng, 0, 0, 12)
	probes := clusterPoints(rng, 3, -2, 8)

	for _, metric := range []Metric{EuclideanMetric{}, ManhattanMetric{}, ChebyshevMetric{}} {
		power, _ := metricPower(metric)
		b := emptyHRectBound(2, power)
		for _, p := range cluster {
			b.grow(p)
		}
		for _, q := range probes {
			lo, hi := b.MinDistance(q), b.MaxDistance(q)
			for _, p := range cluster {
				d := metric.Distance(p, q)
				if lo > d+floatTol {
					t.Errorf("%T: MinDistance %v > true distance %v", metric, lo, d)
				}
				if hi < d-floatTol {
					t.Errorf("%T: MaxDistance %v < true distance %v", metric, hi, d)
				}
			}
		}
	}
}

func TestBound_BoundToBoundBracketsTrueDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	left := clusterPoints(rng, 0, 0, 10)
	right := clusterPoints(rng, 4, 1, 10)
	metric := EuclideanMetric{}

	// Fit one bound of each kind around each cluster.
	fit := func(pts [][]float64) (rect *HRectBound, ball *BallBound, shell *HollowBallBound) {
		rect = emptyHRectBound(2, 2)
		for _, p := range pts {
			rect.grow(p)
		}
		center := pts[0]
		inner, outer := math.Inf(1), 0.0
		for _, p := range pts {
			d := metric.Distance(center, p)
			inner = math.Min(inner, d)
			outer = math.Max(outer, d)
		}
		return rect, newBallBound(center, outer, metric), newHollowBallBound(center, inner, outer, metric)
	}
	lrect, lball, lshell := fit(left)
	rrect, rball, rshell := fit(right)

	check := func(name string, a, b Bound) {
		t.Helper()
		lo, hi := a.MinDistanceBound(b), a.MaxDistanceBound(b)
		for _, p := range left {
			for _, q := range right {
				d := metric.Distance(p, q)
				if lo > d+floatTol {
					t.Errorf("%s: MinDistanceBound %v > true distance %v", name, lo, d)
				}
				if hi < d-floatTol {
					t.Errorf("%s: MaxDistanceBound %v < true distance %v", name, hi, d)
				}
			}
		}
	}
	check("rect-rect", lrect, rrect)
	check("ball-ball", lball, rball)
	check("ball-shell", lball, rshell)
	check("shell-ball", lshell, rball)
	check("shell-shell", lshell, rshell)
}
