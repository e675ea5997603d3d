package rangesearch

import (
	"math"
	"math/rand"
	"sort"
)

// treeBuilder holds build-time state: the tree under construction, the RNG
// behind random-projection splits, and scratch buffers reused across nodes.
// Split rules reorder slices of t.idx and report the absolute position where
// the node's range divides; they never move point data.
type treeBuilder struct {
	t      *Tree
	rng    *rand.Rand
	fkeys  []float64 // per-point sort keys, indexed by original point index
	ukeys  []uint64  // curve keys, indexed by original point index
	dir    []float64 // projection direction scratch
	coords []uint32  // quantized coordinate scratch
}

func newTreeBuilder(t *Tree, seed int64) *treeBuilder {
	tb := &treeBuilder{t: t, rng: rand.New(rand.NewSource(seed))}
	switch t.typ {
	case TreeRP, TreeMaxRP, TreeBall:
		tb.fkeys = make([]float64, t.n)
		tb.dir = make([]float64, t.dims)
	case TreeCover, TreeVP:
		tb.fkeys = make([]float64, t.n)
	case TreeHilbertR, TreeUB:
		tb.ukeys = make([]uint64, t.n)
		tb.coords = make([]uint32, min(t.dims, 64))
	}
	return tb
}

// build constructs the subtree over idx[begin, begin+count). preset carries
// a bound precomputed by the parent's split (vantage shells); nil means
// compute one from the points.
func (tb *treeBuilder) build(begin, count, depth int, preset Bound) *Node {
	b := preset
	if b == nil {
		b = tb.nodeBound(begin, count)
	}
	nd := &Node{begin: begin, count: count, bound: b}
	tb.t.numNodes++
	if count <= tb.t.leafSize {
		return nd
	}
	mid, leftBound, rightBound, ok := tb.split(nd, depth)
	if !ok {
		// Degenerate range: the split rule cannot separate the points, so
		// the node stays an oversized leaf.
		return nd
	}
	nd.left = tb.build(begin, mid-begin, depth+1, leftBound)
	nd.right = tb.build(mid, begin+count-mid, depth+1, rightBound)
	return nd
}

func (tb *treeBuilder) split(nd *Node, depth int) (mid int, leftBound, rightBound Bound, ok bool) {
	switch tb.t.typ {
	case TreeKD, TreeRPlus:
		mid, ok = tb.splitWidestMidpoint(nd)
	case TreeOct:
		mid, ok = tb.splitCyclicMidpoint(nd, depth)
	case TreeR:
		mid, ok = tb.splitVarianceMedian(nd)
	case TreeRStar:
		mid, ok = tb.splitQuantileMinOverlap(nd)
	case TreeX:
		mid, ok = tb.splitMinOverlapDim(nd)
	case TreeRPlusPlus:
		mid, ok = tb.splitWidestMean(nd)
	case TreeHilbertR:
		mid, ok = tb.splitCurveMedian(nd, true)
	case TreeUB:
		mid, ok = tb.splitCurveMedian(nd, false)
	case TreeRP:
		mid, ok = tb.splitRandomMedian(nd)
	case TreeMaxRP:
		mid, ok = tb.splitRandomMidpoint(nd)
	case TreeBall:
		mid, ok = tb.splitFarthestPair(nd)
	case TreeCover:
		mid, ok = tb.splitPivotDistance(nd)
	case TreeVP:
		return tb.splitVantage(nd)
	}
	return mid, nil, nil, ok
}

// --- node bounds ---

func (tb *treeBuilder) nodeBound(begin, count int) Bound {
	switch treeBoundKind(tb.t.typ) {
	case ballBoundKind:
		if tb.t.typ == TreeCover {
			return tb.pivotBall(begin, count)
		}
		return tb.centroidBall(begin, count)
	case hollowBoundKind:
		return tb.vantageShell(begin, count)
	default:
		return tb.tightRect(begin, count)
	}
}

// tightRect fits an axis-aligned rectangle exactly around the range.
func (tb *treeBuilder) tightRect(begin, count int) *HRectBound {
	t := tb.t
	power, _ := metricPower(t.metric)
	b := emptyHRectBound(t.dims, power)
	for pos := begin; pos < begin+count; pos++ {
		b.grow(t.pointAt(pos))
	}
	return b
}

// centroidBall centers a ball on the mean of the range and fits the radius.
func (tb *treeBuilder) centroidBall(begin, count int) *BallBound {
	t := tb.t
	center := make([]float64, t.dims)
	for pos := begin; pos < begin+count; pos++ {
		pt := t.pointAt(pos)
		for d, v := range pt {
			center[d] += v
		}
	}
	for d := range center {
		center[d] /= float64(count)
	}
	var radius float64
	for pos := begin; pos < begin+count; pos++ {
		if d := t.metric.Distance(center, t.pointAt(pos)); d > radius {
			radius = d
		}
	}
	return &BallBound{center: center, radius: radius, metric: t.metric}
}

// pivotBall centers a ball on the first point of the range.
func (tb *treeBuilder) pivotBall(begin, count int) *BallBound {
	t := tb.t
	pivot := t.pointAt(begin)
	var radius float64
	for pos := begin; pos < begin+count; pos++ {
		if d := t.metric.Distance(pivot, t.pointAt(pos)); d > radius {
			radius = d
		}
	}
	return newBallBound(pivot, radius, t.metric)
}

// vantageShell fits a shell around the first point of the range. Only the
// root uses this; child shells come preset from splitVantage.
func (tb *treeBuilder) vantageShell(begin, count int) *HollowBallBound {
	t := tb.t
	vantage := t.pointAt(begin)
	inner, outer := math.Inf(1), 0.0
	for pos := begin; pos < begin+count; pos++ {
		d := t.metric.Distance(vantage, t.pointAt(pos))
		if d < inner {
			inner = d
		}
		if d > outer {
			outer = d
		}
	}
	return newHollowBallBound(vantage, inner, outer, t.metric)
}

// --- reorder primitives ---

// sortRangeByDim sorts idx[begin:end) by the given coordinate.
func (tb *treeBuilder) sortRangeByDim(begin, end, dim int) {
	t := tb.t
	sub := t.idx[begin:end]
	data, dims := t.data, t.dims
	sort.Slice(sub, func(i, j int) bool {
		return data[sub[i]*dims+dim] < data[sub[j]*dims+dim]
	})
}

// sortRangeByFloatKeys sorts idx[begin:end) by tb.fkeys.
func (tb *treeBuilder) sortRangeByFloatKeys(begin, end int) {
	sub := tb.t.idx[begin:end]
	keys := tb.fkeys
	sort.Slice(sub, func(i, j int) bool { return keys[sub[i]] < keys[sub[j]] })
}

// sortRangeByCurveKeys sorts idx[begin:end) by tb.ukeys.
func (tb *treeBuilder) sortRangeByCurveKeys(begin, end int) {
	sub := tb.t.idx[begin:end]
	keys := tb.ukeys
	sort.Slice(sub, func(i, j int) bool { return keys[sub[i]] < keys[sub[j]] })
}

// partitionAtPlane reorders idx[begin:end) so points with coordinate below
// plane on dim come first, and returns the absolute divide position.
func (tb *treeBuilder) partitionAtPlane(begin, end, dim int, plane float64) int {
	t := tb.t
	i, j := begin, end-1
	for i <= j {
		if t.data[t.idx[i]*t.dims+dim] < plane {
			i++
		} else {
			t.idx[i], t.idx[j] = t.idx[j], t.idx[i]
			j--
		}
	}
	return i
}

// partitionByKeys reorders idx[begin:end) so points with fkeys below plane
// come first, and returns the absolute divide position.
func (tb *treeBuilder) partitionByKeys(begin, end int, plane float64) int {
	t := tb.t
	keys := tb.fkeys
	i, j := begin, end-1
	for i <= j {
		if keys[t.idx[i]] < plane {
			i++
		} else {
			t.idx[i], t.idx[j] = t.idx[j], t.idx[i]
			j--
		}
	}
	return i
}

func widestDim(rect *HRectBound) (dim int, spread float64) {
	spread = -1
	for d := range rect.lo {
		if s := rect.hi[d] - rect.lo[d]; s > spread {
			spread = s
			dim = d
		}
	}
	return dim, spread
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// --- split rules ---

// splitCyclicMidpoint: bisect the bound midpoint on a dimension that cycles
// with depth, skipping flat dimensions. The oct rule.
func (tb *treeBuilder) splitCyclicMidpoint(nd *Node, depth int) (int, bool) {
	t := tb.t
	rect := nd.bound.(*HRectBound)
	for off := 0; off < t.dims; off++ {
		dim := (depth + off) % t.dims
		if rect.hi[dim] <= rect.lo[dim] {
			continue
		}
		plane := (rect.lo[dim] + rect.hi[dim]) / 2
		mid := tb.partitionAtPlane(nd.begin, nd.End(), dim, plane)
		if mid > nd.begin && mid < nd.End() {
			return mid, true
		}
		// Rounding put everything on one side; a median split on the same
		// dimension still separates the extremes.
		tb.sortRangeByDim(nd.begin, nd.End(), dim)
		return nd.begin + nd.count/2, true
	}
	return 0, false
}

// splitVarianceMedian: maximum-variance dimension, median point. The r rule.
func (tb *treeBuilder) splitVarianceMedian(nd *Node) (int, bool) {
	t := tb.t
	mean := make([]float64, t.dims)
	for pos := nd.begin; pos < nd.End(); pos++ {
		for d, v := range t.pointAt(pos) {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= float64(nd.count)
	}
	bestDim, bestVar := 0, -1.0
	for d := 0; d < t.dims; d++ {
		var sum float64
		for pos := nd.begin; pos < nd.End(); pos++ {
			diff := t.pointAt(pos)[d] - mean[d]
			sum += diff * diff
		}
		if sum > bestVar {
			bestVar = sum
			bestDim = d
		}
	}
	if bestVar <= 0 {
		return 0, false
	}
	tb.sortRangeByDim(nd.begin, nd.End(), bestDim)
	return nd.begin + nd.count/2, true
}

// splitQuantileMinOverlap: sort on the widest dimension and pick the
// quarter, half, or three-quarter cut whose children overlap least, margin
// as tie-break. The r-star rule.
func (tb *treeBuilder) splitQuantileMinOverlap(nd *Node) (int, bool) {
	dim, spread := widestDim(nd.bound.(*HRectBound))
	if spread <= 0 {
		return 0, false
	}
	tb.sortRangeByDim(nd.begin, nd.End(), dim)

	seen := map[int]bool{}
	best, bestOverlap, bestMargin := -1, math.Inf(1), math.Inf(1)
	for _, q := range []int{nd.count / 4, nd.count / 2, 3 * nd.count / 4} {
		mid := nd.begin + q
		if mid <= nd.begin {
			mid = nd.begin + 1
		}
		if mid >= nd.End() {
			mid = nd.End() - 1
		}
		if seen[mid] {
			continue
		}
		seen[mid] = true
		left := tb.tightRect(nd.begin, mid-nd.begin)
		right := tb.tightRect(mid, nd.End()-mid)
		overlap, margin := rectOverlap(left, right), rectMargin(left)+rectMargin(right)
		if overlap < bestOverlap || (overlap == bestOverlap && margin < bestMargin) {
			best, bestOverlap, bestMargin = mid, overlap, margin
		}
	}
	return best, best > 0
}

// rectOverlap is the volume of the intersection of two rectangles.
func rectOverlap(a, b *HRectBound) float64 {
	vol := 1.0
	for d := range a.lo {
		w := math.Min(a.hi[d], b.hi[d]) - math.Max(a.lo[d], b.lo[d])
		if w <= 0 {
			return 0
		}
		vol *= w
	}
	return vol
}

// rectMargin is the sum of a rectangle's extents.
func rectMargin(a *HRectBound) float64 {
	var sum float64
	for d := range a.lo {
		sum += a.hi[d] - a.lo[d]
	}
	return sum
}

// splitMinOverlapDim: try a midpoint cut on every dimension and keep the one
// whose children overlap least. The x rule.
func (tb *treeBuilder) splitMinOverlapDim(nd *Node) (int, bool) {
	t := tb.t
	rect := nd.bound.(*HRectBound)
	bestDim, bestPlane, bestOverlap := -1, 0.0, math.Inf(1)
	for dim := 0; dim < t.dims; dim++ {
		if rect.hi[dim] <= rect.lo[dim] {
			continue
		}
		plane := (rect.lo[dim] + rect.hi[dim]) / 2
		power := rect.power
		left := emptyHRectBound(t.dims, power)
		right := emptyHRectBound(t.dims, power)
		var nLeft, nRight int
		for pos := nd.begin; pos < nd.End(); pos++ {
			pt := t.pointAt(pos)
			if pt[dim] < plane {
				left.grow(pt)
				nLeft++
			} else {
				right.grow(pt)
				nRight++
			}
		}
		if nLeft == 0 || nRight == 0 {
			continue
		}
		if overlap := rectOverlap(left, right); overlap < bestOverlap {
			bestDim, bestPlane, bestOverlap = dim, plane, overlap
		}
	}
	if bestDim < 0 {
		// Every midpoint cut rounded onto one side; fall back to a median
		// split on the widest dimension.
		dim, spread := widestDim(rect)
		if spread <= 0 {
			return 0, false
		}
		tb.sortRangeByDim(nd.begin, nd.End(), dim)
		return nd.begin + nd.count/2, true
	}
	return tb.partitionAtPlane(nd.begin, nd.End(), bestDim, bestPlane), true
}

// splitWidestMidpoint: cut the widest dimension at the bound midpoint, so
// sibling rectangles never overlap on the cut axis. The kd and r-plus rule;
// a median split on the same dimension covers the rare cut that rounds onto
// one side.
func (tb *treeBuilder) splitWidestMidpoint(nd *Node) (int, bool) {
	rect := nd.bound.(*HRectBound)
	dim, spread := widestDim(rect)
	if spread <= 0 {
		return 0, false
	}
	plane := (rect.lo[dim] + rect.hi[dim]) / 2
	mid := tb.partitionAtPlane(nd.begin, nd.End(), dim, plane)
	if mid > nd.begin && mid < nd.End() {
		return mid, true
	}
	tb.sortRangeByDim(nd.begin, nd.End(), dim)
	return nd.begin + nd.count/2, true
}

// splitWidestMean: cut the widest dimension at the mean coordinate of the
// node's points. The r-plus-plus rule.
func (tb *treeBuilder) splitWidestMean(nd *Node) (int, bool) {
	t := tb.t
	rect := nd.bound.(*HRectBound)
	dim, spread := widestDim(rect)
	if spread <= 0 {
		return 0, false
	}
	var mean float64
	for pos := nd.begin; pos < nd.End(); pos++ {
		mean += t.pointAt(pos)[dim]
	}
	mean /= float64(nd.count)
	mid := tb.partitionAtPlane(nd.begin, nd.End(), dim, mean)
	if mid > nd.begin && mid < nd.End() {
		return mid, true
	}
	tb.sortRangeByDim(nd.begin, nd.End(), dim)
	return nd.begin + nd.count/2, true
}

// splitCurveMedian: order the node's points along a space-filling curve
// quantized against the node rectangle and cut at the median position.
// Hilbert order for the hilbert-r rule, Morton order for the ub rule.
func (tb *treeBuilder) splitCurveMedian(nd *Node, hilbert bool) (int, bool) {
	t := tb.t
	rect := nd.bound.(*HRectBound)
	bits := curveBits(t.dims)
	for pos := nd.begin; pos < nd.End(); pos++ {
		pt := t.pointAt(pos)
		for d := range tb.coords {
			tb.coords[d] = quantizeCoord(pt[d], rect.lo[d], rect.hi[d], bits)
		}
		var key uint64
		if hilbert {
			key = hilbertKey(tb.coords, bits)
		} else {
			key = mortonKey(tb.coords, bits)
		}
		tb.ukeys[t.idx[pos]] = key
	}
	tb.sortRangeByCurveKeys(nd.begin, nd.End())
	if tb.ukeys[t.idx[nd.begin]] == tb.ukeys[t.idx[nd.End()-1]] {
		return 0, false
	}
	return nd.begin + nd.count/2, true
}

// randomUnitDirection fills tb.dir with a uniformly random unit vector.
func (tb *treeBuilder) randomUnitDirection() []float64 {
	for {
		var norm float64
		for d := range tb.dir {
			v := tb.rng.NormFloat64()
			tb.dir[d] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for d := range tb.dir {
				tb.dir[d] /= norm
			}
			return tb.dir
		}
	}
}

// projectRange writes the projection of each point onto dir into tb.fkeys
// and returns the key extent.
func (tb *treeBuilder) projectRange(nd *Node, dir []float64) (lo, hi float64) {
	t := tb.t
	lo, hi = math.Inf(1), math.Inf(-1)
	for pos := nd.begin; pos < nd.End(); pos++ {
		k := dot(t.pointAt(pos), dir)
		tb.fkeys[t.idx[pos]] = k
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}
	return lo, hi
}

// splitRandomMedian: project onto a random direction and cut at the median
// projection. The rp rule.
func (tb *treeBuilder) splitRandomMedian(nd *Node) (int, bool) {
	for try := 0; try < 3; try++ {
		lo, hi := tb.projectRange(nd, tb.randomUnitDirection())
		if hi > lo {
			tb.sortRangeByFloatKeys(nd.begin, nd.End())
			return nd.begin + nd.count/2, true
		}
	}
	return 0, false
}

// splitRandomMidpoint: project onto a random direction and cut at the middle
// of the projection extent. The max-rp rule.
func (tb *treeBuilder) splitRandomMidpoint(nd *Node) (int, bool) {
	for try := 0; try < 3; try++ {
		lo, hi := tb.projectRange(nd, tb.randomUnitDirection())
		if hi <= lo {
			continue
		}
		mid := tb.partitionByKeys(nd.begin, nd.End(), (lo+hi)/2)
		if mid > nd.begin && mid < nd.End() {
			return mid, true
		}
		tb.sortRangeByFloatKeys(nd.begin, nd.End())
		return nd.begin + nd.count/2, true
	}
	return 0, false
}

// splitFarthestPair: project onto the axis between the point farthest from
// the centroid and the point farthest from that point, cut at the median
// projection. The ball rule.
func (tb *treeBuilder) splitFarthestPair(nd *Node) (int, bool) {
	t := tb.t
	ball := nd.bound.(*BallBound)
	if ball.radius <= 0 {
		return 0, false
	}
	far := func(from []float64) []float64 {
		best, bestD := t.pointAt(nd.begin), -1.0
		for pos := nd.begin; pos < nd.End(); pos++ {
			if d := t.metric.Distance(from, t.pointAt(pos)); d > bestD {
				bestD = d
				best = t.pointAt(pos)
			}
		}
		return best
	}
	a := far(ball.center)
	b := far(a)
	axis := make([]float64, t.dims)
	var norm float64
	for d := range axis {
		axis[d] = b[d] - a[d]
		norm += axis[d] * axis[d]
	}
	if norm <= 0 {
		return 0, false
	}
	lo, hi := tb.projectRange(nd, axis)
	if hi <= lo {
		return 0, false
	}
	tb.sortRangeByFloatKeys(nd.begin, nd.End())
	return nd.begin + nd.count/2, true
}

// splitPivotDistance: order by distance from the node's pivot point and cut
// at the median distance. The cover rule.
func (tb *treeBuilder) splitPivotDistance(nd *Node) (int, bool) {
	t := tb.t
	ball := nd.bound.(*BallBound)
	if ball.radius <= 0 {
		return 0, false
	}
	for pos := nd.begin; pos < nd.End(); pos++ {
		tb.fkeys[t.idx[pos]] = t.metric.Distance(ball.center, t.pointAt(pos))
	}
	tb.sortRangeByFloatKeys(nd.begin, nd.End())
	return nd.begin + nd.count/2, true
}

// splitVantage: order by distance from the node's first point and cut at the
// median distance. Children get shell bounds around the shared vantage, the
// near half a filled shell, the far half a hollow one. The vp rule.
func (tb *treeBuilder) splitVantage(nd *Node) (mid int, leftBound, rightBound Bound, ok bool) {
	t := tb.t
	vantage := t.point(t.idx[nd.begin])
	var outer float64
	for pos := nd.begin; pos < nd.End(); pos++ {
		d := t.metric.Distance(vantage, t.pointAt(pos))
		tb.fkeys[t.idx[pos]] = d
		if d > outer {
			outer = d
		}
	}
	if outer <= 0 {
		return 0, nil, nil, false
	}
	tb.sortRangeByFloatKeys(nd.begin, nd.End())
	mid = nd.begin + nd.count/2
	leftBound = newHollowBallBound(vantage,
		tb.fkeys[t.idx[nd.begin]], tb.fkeys[t.idx[mid-1]], t.metric)
	rightBound = newHollowBallBound(vantage,
		tb.fkeys[t.idx[mid]], tb.fkeys[t.idx[nd.End()-1]], t.metric)
	return mid, leftBound, rightBound, true
}
