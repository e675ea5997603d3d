package rangesearch

// resultSet accumulates per-query neighbor lists in traversal order.
// neighbors[q] and distances[q] stay aligned: entry k of both describes the
// same reference point. Parallel searches may call add concurrently as long
// as each goroutine owns a disjoint set of slots.
type resultSet struct {
	neighbors [][]int
	distances [][]float64
}

func newResultSet(nq int) *resultSet {
	return &resultSet{
		neighbors: make([][]int, nq),
		distances: make([][]float64, nq),
	}
}

func (r *resultSet) add(slot, refIndex int, d float64) {
	r.neighbors[slot] = append(r.neighbors[slot], refIndex)
	r.distances[slot] = append(r.distances[slot], d)
}
