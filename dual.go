package rangesearch

// dualTraverser recurses over pairs of query and reference nodes. A pair is
// pruned when the bound-to-bound distance range misses the window, accepted
// as a full cross product when the range lies inside it, and otherwise
// narrowed by recursing into child pairs, each re-checked independently.
// Leaf against leaf falls back to exact comparisons. Monochromatic search
// runs the reference tree against itself.
type dualTraverser struct {
	qtree  *Tree
	rtree  *Tree
	window Range
	mono   bool
	res    *resultSet
}

func (tr *dualTraverser) run() {
	tr.visit(tr.qtree.root, tr.rtree.root)
}

func (tr *dualTraverser) visit(qn, rn *Node) {
	b := rn.bound.RangeDistanceBound(qn.bound)
	if !tr.window.Intersects(b) {
		return
	}
	if tr.window.ContainsRange(b) {
		tr.emitAllPairs(qn, rn)
		return
	}
	switch {
	case qn.IsLeaf() && rn.IsLeaf():
		tr.scanLeafPair(qn, rn)
	case rn.IsLeaf():
		tr.visit(qn.left, rn)
		tr.visit(qn.right, rn)
	case qn.IsLeaf():
		tr.visitOrdered(qn, rn.left, rn.right)
	default:
		tr.visitOrdered(qn.left, rn.left, rn.right)
		tr.visitOrdered(qn.right, rn.left, rn.right)
	}
}

// visitOrdered descends into both reference children, nearer one first.
func (tr *dualTraverser) visitOrdered(qn, ra, rb *Node) {
	da := ra.bound.MinDistanceBound(qn.bound)
	db := rb.bound.MinDistanceBound(qn.bound)
	if da <= db {
		tr.visit(qn, ra)
		tr.visit(qn, rb)
	} else {
		tr.visit(qn, rb)
		tr.visit(qn, ra)
	}
}

// emitAllPairs reports the full cross product of the two subtrees. The pair
// bound already proves membership; exact distances are computed only for the
// output.
func (tr *dualTraverser) emitAllPairs(qn, rn *Node) {
	qt, rt := tr.qtree, tr.rtree
	for qpos := qn.begin; qpos < qn.End(); qpos++ {
		slot := qt.originalIndex(qpos)
		query := qt.pointAt(qpos)
		for rpos := rn.begin; rpos < rn.End(); rpos++ {
			ri := rt.originalIndex(rpos)
			if tr.mono && ri == slot {
				continue
			}
			tr.res.add(slot, ri, rt.metric.Distance(query, rt.pointAt(rpos)))
		}
	}
}

func (tr *dualTraverser) scanLeafPair(qn, rn *Node) {
	qt, rt := tr.qtree, tr.rtree
	for qpos := qn.begin; qpos < qn.End(); qpos++ {
		slot := qt.originalIndex(qpos)
		query := qt.pointAt(qpos)
		for rpos := rn.begin; rpos < rn.End(); rpos++ {
			ri := rt.originalIndex(rpos)
			if tr.mono && ri == slot {
				continue
			}
			d := rt.metric.Distance(query, rt.pointAt(rpos))
			if tr.window.Contains(d) {
				tr.res.add(slot, ri, d)
			}
		}
	}
}
