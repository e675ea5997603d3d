package rangesearch

// naiveSearch compares the query slots [from, to) against every reference
// point. It is both the naive search mode and the oracle the tree modes are
// tested against. In monochromatic mode queries aliases the reference data
// and each point is excluded from its own result list.
func naiveSearch(res *resultSet, refData []float64, nref, dims int, queries []float64, from, to int, metric Metric, window Range, mono bool) {
	for q := from; q < to; q++ {
		query := queries[q*dims : (q+1)*dims]
		for r := 0; r < nref; r++ {
			if mono && r == q {
				continue
			}
			d := metric.Distance(query, refData[r*dims:(r+1)*dims])
			if window.Contains(d) {
				res.add(q, r, d)
			}
		}
	}
}
