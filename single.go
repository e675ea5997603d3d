package rangesearch

// singleTraverser walks the reference tree once per query point. A subtree
// is pruned when its distance bound cannot intersect the window and accepted
// wholesale when its bound lies inside it; only the remainder reaches exact
// comparisons. One traverser serves many queries through repeated search
// calls but must not be shared across goroutines.
type singleTraverser struct {
	tree   *Tree
	window Range
	res    *resultSet
	query  []float64
	slot   int
	self   int // original index excluded from results, -1 outside monochromatic mode
}

func newSingleTraverser(tree *Tree, window Range, res *resultSet) *singleTraverser {
	return &singleTraverser{tree: tree, window: window, res: res}
}

func (tr *singleTraverser) search(query []float64, slot, self int) {
	tr.query, tr.slot, tr.self = query, slot, self
	tr.visit(tr.tree.root)
}

func (tr *singleTraverser) visit(nd *Node) {
	b := nd.bound.RangeDistance(tr.query)
	if !tr.window.Intersects(b) {
		return
	}
	if tr.window.ContainsRange(b) {
		tr.emitAll(nd)
		return
	}
	if nd.IsLeaf() {
		tr.scanLeaf(nd)
		return
	}
	dl := nd.left.bound.MinDistance(tr.query)
	dr := nd.right.bound.MinDistance(tr.query)
	if dl <= dr {
		tr.visit(nd.left)
		tr.visit(nd.right)
	} else {
		tr.visit(nd.right)
		tr.visit(nd.left)
	}
}

// emitAll reports every point under nd. The node's bound already proves
// membership; the exact distance is computed only for the output.
func (tr *singleTraverser) emitAll(nd *Node) {
	t := tr.tree
	for pos := nd.begin; pos < nd.End(); pos++ {
		ri := t.originalIndex(pos)
		if ri == tr.self {
			continue
		}
		tr.res.add(tr.slot, ri, t.metric.Distance(tr.query, t.pointAt(pos)))
	}
}

func (tr *singleTraverser) scanLeaf(nd *Node) {
	t := tr.tree
	for pos := nd.begin; pos < nd.End(); pos++ {
		ri := t.originalIndex(pos)
		if ri == tr.self {
			continue
		}
		d := t.metric.Distance(tr.query, t.pointAt(pos))
		if tr.window.Contains(d) {
			tr.res.add(tr.slot, ri, d)
		}
	}
}
