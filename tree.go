package rangesearch

import "fmt"

// TreeType selects the space-partitioning structure built over the reference
// set. All types share one node layout and differ in bound geometry and
// split rule, so every traversal works with every type.
type TreeType string

const (
	TreeKD        TreeType = "kd"
	TreeVP        TreeType = "vp"
	TreeRP        TreeType = "rp"
	TreeMaxRP     TreeType = "max-rp"
	TreeUB        TreeType = "ub"
	TreeCover     TreeType = "cover"
	TreeR         TreeType = "r"
	TreeRStar     TreeType = "r-star"
	TreeX         TreeType = "x"
	TreeBall      TreeType = "ball"
	TreeHilbertR  TreeType = "hilbert-r"
	TreeRPlus     TreeType = "r-plus"
	TreeRPlusPlus TreeType = "r-plus-plus"
	TreeOct       TreeType = "oct"
)

// treeTypeOrder fixes the serialization codes; append only.
var treeTypeOrder = []TreeType{
	TreeKD, TreeVP, TreeRP, TreeMaxRP, TreeUB, TreeCover, TreeR, TreeRStar,
	TreeX, TreeBall, TreeHilbertR, TreeRPlus, TreeRPlusPlus, TreeOct,
}

// TreeTypes returns all supported tree type tags, default first.
func TreeTypes() []TreeType {
	out := make([]TreeType, len(treeTypeOrder))
	copy(out, treeTypeOrder)
	return out
}

// ParseTreeType converts a tag string into a TreeType.
func ParseTreeType(s string) (TreeType, error) {
	for _, tt := range treeTypeOrder {
		if string(tt) == s {
			return tt, nil
		}
	}
	return "", fmt.Errorf("rangesearch: tree type %q: %w", s, ErrUnknownTreeType)
}

type boundKind uint8

const (
	rectBoundKind boundKind = iota
	ballBoundKind
	hollowBoundKind
)

func treeBoundKind(tt TreeType) boundKind {
	switch tt {
	case TreeBall, TreeCover:
		return ballBoundKind
	case TreeVP:
		return hollowBoundKind
	default:
		return rectBoundKind
	}
}

// Node is one node of a space-partitioning tree. It covers the contiguous
// slice [Begin, End) of the tree's index permutation; an internal node's
// children partition that slice exactly.
type Node struct {
	begin int
	count int
	bound Bound
	left  *Node
	right *Node
}

// Begin returns the first tree-order position covered by the node.
func (nd *Node) Begin() int { return nd.begin }

// End returns one past the last tree-order position covered by the node.
func (nd *Node) End() int { return nd.begin + nd.count }

// Count returns the number of points in the node's subtree.
func (nd *Node) Count() int { return nd.count }

// IsLeaf reports whether the node has no children.
func (nd *Node) IsLeaf() bool { return nd.left == nil }

// Left returns the left child, nil for leaves.
func (nd *Node) Left() *Node { return nd.left }

// Right returns the right child, nil for leaves.
func (nd *Node) Right() *Node { return nd.right }

// Bound returns the node's bounding volume.
func (nd *Node) Bound() Bound { return nd.bound }

// Tree is a binary space-partitioning tree over a point set. Points are
// stored in a flat row-major array that never moves; building permutes only
// the index array, so idx maps tree-order positions to original point
// indices.
type Tree struct {
	typ      TreeType
	metric   Metric
	leafSize int
	dims     int
	n        int
	data     []float64
	idx      []int
	root     *Node
	numNodes int
}

// NewTree builds a tree of the given type over flat row-major data with n
// points of dimensionality dims. The data is copied. seed drives the random
// split directions of the rp and max-rp types and is ignored by the rest.
func NewTree(typ TreeType, data []float64, n, dims int, metric Metric, leafSize int, seed int64) (*Tree, error) {
	if _, err := ParseTreeType(string(typ)); err != nil {
		return nil, err
	}
	if n < 1 || dims < 1 {
		return nil, fmt.Errorf("rangesearch: cannot build a tree over %d points of dimension %d: %w", n, dims, ErrEmptyReferenceSet)
	}
	if len(data) != n*dims {
		return nil, fmt.Errorf("rangesearch: data length %d does not match %d points of dimension %d: %w", len(data), n, dims, ErrDimensionMismatch)
	}
	if leafSize < 1 {
		return nil, fmt.Errorf("rangesearch: leaf size must be >= 1, got %d: %w", leafSize, ErrInvalidLeafSize)
	}
	if metric == nil {
		metric = EuclideanMetric{}
	}
	if treeBoundKind(typ) == rectBoundKind {
		if _, ok := metricPower(metric); !ok {
			return nil, fmt.Errorf("rangesearch: tree type %q needs a Minkowski-family metric: %w", typ, ErrUnsupportedMetric)
		}
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	t := &Tree{
		typ:      typ,
		metric:   metric,
		leafSize: leafSize,
		dims:     dims,
		n:        n,
		data:     dataCopy,
		idx:      idx,
	}
	tb := newTreeBuilder(t, seed)
	t.root = tb.build(0, n, 0, nil)
	return t, nil
}

// Type returns the tree type tag.
func (t *Tree) Type() TreeType { return t.typ }

// Metric returns the distance metric the tree was built with.
func (t *Tree) Metric() Metric { return t.metric }

// LeafSize returns the configured maximum leaf population.
func (t *Tree) LeafSize() int { return t.leafSize }

// NumPoints returns the number of indexed points.
func (t *Tree) NumPoints() int { return t.n }

// NumFeatures returns the dimensionality.
func (t *Tree) NumFeatures() int { return t.dims }

// NumNodes returns the number of nodes in the tree.
func (t *Tree) NumNodes() int { return t.numNodes }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Data returns the flat row-major point data in original order.
// The slice is owned by the tree.
func (t *Tree) Data() []float64 { return t.data }

// IdxArray returns the permutation mapping tree-order positions to original
// point indices. The slice is owned by the tree.
func (t *Tree) IdxArray() []int { return t.idx }

// pointAt returns the point at tree-order position pos.
func (t *Tree) pointAt(pos int) []float64 {
	p := t.idx[pos]
	return t.data[p*t.dims : (p+1)*t.dims]
}

// originalIndex returns the original index of the point at tree-order
// position pos.
func (t *Tree) originalIndex(pos int) int { return t.idx[pos] }

// point returns the point with the given original index.
func (t *Tree) point(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}
