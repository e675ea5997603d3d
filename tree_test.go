package rangesearch

import (
	"errors"
	"math/rand"
	"testing"
)

func randomData(seed int64, n, dims int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * 100
	}
	return data
}

// checkTreeStructure walks the whole tree and verifies the structural
// contract every split rule must maintain: idx is a permutation, children
// partition their parent's range exactly, every bound contains its node's
// points, and no leaf exceeds the leaf size.
func checkTreeStructure(t *testing.T, tree *Tree) {
	t.Helper()

	n := tree.NumPoints()
	idx := tree.IdxArray()
	if len(idx) != n {
		t.Fatalf("IdxArray length = %d, want %d", len(idx), n)
	}
	seen := make([]bool, n)
	for _, v := range idx {
		if v < 0 || v >= n || seen[v] {
			t.Fatalf("IdxArray is not a permutation: %v", idx)
		}
		seen[v] = true
	}

	var nodes int
	var walk func(nd *Node)
	walk = func(nd *Node) {
		nodes++
		if nd.Count() < 1 {
			t.Fatalf("node [%d,%d) is empty", nd.Begin(), nd.End())
		}
		for pos := nd.Begin(); pos < nd.End(); pos++ {
			if !nd.Bound().Contains(tree.pointAt(pos)) {
				t.Fatalf("bound of node [%d,%d) does not contain its point at position %d",
					nd.Begin(), nd.End(), pos)
			}
		}
		if nd.IsLeaf() {
			if nd.Count() > tree.LeafSize() {
				t.Errorf("leaf [%d,%d) holds %d points, leaf size is %d",
					nd.Begin(), nd.End(), nd.Count(), tree.LeafSize())
			}
			return
		}
		left, right := nd.Left(), nd.Right()
		if left.Begin() != nd.Begin() || left.End() != right.Begin() || right.End() != nd.End() {
			t.Fatalf("children [%d,%d) and [%d,%d) do not partition [%d,%d)",
				left.Begin(), left.End(), right.Begin(), right.End(), nd.Begin(), nd.End())
		}
		walk(left)
		walk(right)
	}
	walk(tree.Root())

	if nodes != tree.NumNodes() {
		t.Errorf("walked %d nodes, NumNodes() = %d", nodes, tree.NumNodes())
	}
}

func TestNewTree_StructureAllTypes(t *testing.T) {
	n, dims := 60, 3
	data := randomData(3, n, dims)

	for _, tt := range TreeTypes() {
		t.Run(string(tt), func(t *testing.T) {
			tree, err := NewTree(tt, data, n, dims, EuclideanMetric{}, 5, 99)
			if err != nil {
				t.Fatalf("NewTree(%s) error: %v", tt, err)
			}
			if tree.Type() != tt {
				t.Errorf("Type() = %v, want %v", tree.Type(), tt)
			}
			if tree.NumPoints() != n || tree.NumFeatures() != dims {
				t.Errorf("NumPoints/NumFeatures = %d/%d, want %d/%d",
					tree.NumPoints(), tree.NumFeatures(), n, dims)
			}
			checkTreeStructure(t, tree)
		})
	}
}

func TestNewTree_SinglePoint(t *testing.T) {
	for _, tt := range TreeTypes() {
		tree, err := NewTree(tt, []float64{1, 2, 3}, 1, 3, EuclideanMetric{}, 20, 0)
		if err != nil {
			t.Fatalf("NewTree(%s) error: %v", tt, err)
		}
		if tree.NumNodes() != 1 || !tree.Root().IsLeaf() {
			t.Errorf("%s: single point should build a one-leaf tree", tt)
		}
	}
}

func TestNewTree_LeafSizeLargerThanN(t *testing.T) {
	data := randomData(5, 8, 2)
	tree, err := NewTree(TreeKD, data, 8, 2, EuclideanMetric{}, 100, 0)
	if err != nil {
		t.Fatalf("NewTree error: %v", err)
	}
	if tree.NumNodes() != 1 {
		t.Errorf("NumNodes() = %d, want 1 when all points fit one leaf", tree.NumNodes())
	}
}

func TestNewTree_AllIdenticalPoints(t *testing.T) {
	// No split rule can separate identical points; the root must stay a
	// single oversized leaf rather than recurse forever.
	n, dims := 10, 2
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = 5
	}
	for _, tt := range TreeTypes() {
		tree, err := NewTree(tt, data, n, dims, EuclideanMetric{}, 2, 7)
		if err != nil {
			t.Fatalf("NewTree(%s) error: %v", tt, err)
		}
		if tree.NumNodes() != 1 || !tree.Root().IsLeaf() {
			t.Errorf("%s: identical points should collapse to one leaf, got %d nodes",
				tt, tree.NumNodes())
		}
	}
}

func TestNewTree_DataIsCopied(t *testing.T) {
	data := []float64{0, 0, 1, 1, 2, 2}
	tree, err := NewTree(TreeKD, data, 3, 2, EuclideanMetric{}, 1, 0)
	if err != nil {
		t.Fatalf("NewTree error: %v", err)
	}
	data[0] = 999
	if tree.Data()[0] == 999 {
		t.Error("tree shares memory with the caller's data")
	}
}

func TestNewTree_Errors(t *testing.T) {
	data := []float64{0, 0, 1, 1}

	_, err := NewTree("splay", data, 2, 2, EuclideanMetric{}, 20, 0)
	if !errors.Is(err, ErrUnknownTreeType) {
		t.Errorf("unknown type: got %v, want ErrUnknownTreeType", err)
	}

	_, err = NewTree(TreeKD, nil, 0, 2, EuclideanMetric{}, 20, 0)
	if !errors.Is(err, ErrEmptyReferenceSet) {
		t.Errorf("zero points: got %v, want ErrEmptyReferenceSet", err)
	}

	_, err = NewTree(TreeKD, data, 3, 2, EuclideanMetric{}, 20, 0)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("bad data length: got %v, want ErrDimensionMismatch", err)
	}

	_, err = NewTree(TreeKD, data, 2, 2, EuclideanMetric{}, 0, 0)
	if !errors.Is(err, ErrInvalidLeafSize) {
		t.Errorf("zero leaf size: got %v, want ErrInvalidLeafSize", err)
	}
}

func TestNewTree_CustomMetricRequiresBallFamily(t *testing.T) {
	data := randomData(11, 12, 2)
	custom := MetricFunc(ManhattanMetric{}.Distance)

	// Rectangle bounds decompose along axes and cannot carry it.
	_, err := NewTree(TreeKD, data, 12, 2, custom, 4, 0)
	if !errors.Is(err, ErrUnsupportedMetric) {
		t.Errorf("kd with custom metric: got %v, want ErrUnsupportedMetric", err)
	}

	// Ball, cover, and vp bounds only need the triangle inequality.
	for _, tt := range []TreeType{TreeBall, TreeCover, TreeVP} {
		tree, err := NewTree(tt, data, 12, 2, custom, 4, 0)
		if err != nil {
			t.Fatalf("NewTree(%s) with custom metric: %v", tt, err)
		}
		checkTreeStructure(t, tree)
	}
}

func TestNewTree_ManhattanAndChebyshev(t *testing.T) {
	data := randomData(13, 30, 2)
	for _, metric := range []Metric{ManhattanMetric{}, ChebyshevMetric{}} {
		for _, tt := range []TreeType{TreeKD, TreeBall, TreeVP} {
			tree, err := NewTree(tt, data, 30, 2, metric, 4, 0)
			if err != nil {
				t.Fatalf("NewTree(%s, %T) error: %v", tt, metric, err)
			}
			checkTreeStructure(t, tree)
		}
	}
}

func TestParseTreeType(t *testing.T) {
	for _, tt := range TreeTypes() {
		parsed, err := ParseTreeType(string(tt))
		if err != nil || parsed != tt {
			t.Errorf("ParseTreeType(%q) = %v, %v", tt, parsed, err)
		}
	}
	if _, err := ParseTreeType("quadtree"); !errors.Is(err, ErrUnknownTreeType) {
		t.Errorf("ParseTreeType(quadtree) = %v, want ErrUnknownTreeType", err)
	}
}

func TestTreeTypes_Count(t *testing.T) {
	if got := len(TreeTypes()); got != 14 {
		t.Errorf("TreeTypes() returned %d types, want 14", got)
	}
}

func TestNewTree_RPTreesAreSeedDeterministic(t *testing.T) {
	data := randomData(17, 40, 3)
	for _, tt := range []TreeType{TreeRP, TreeMaxRP} {
		a, err := NewTree(tt, data, 40, 3, EuclideanMetric{}, 5, 123)
		if err != nil {
			t.Fatalf("NewTree(%s) error: %v", tt, err)
		}
		b, err := NewTree(tt, data, 40, 3, EuclideanMetric{}, 5, 123)
		if err != nil {
			t.Fatalf("NewTree(%s) error: %v", tt, err)
		}
		for i := range a.IdxArray() {
			if a.IdxArray()[i] != b.IdxArray()[i] {
				t.Errorf("%s: same seed produced different trees", tt)
				break
			}
		}
	}
}
