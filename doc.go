// Package rangesearch implements exact range search over space-partitioning
// trees: finding, for each query point, every reference point whose distance
// from the query falls in a closed interval [min, max].
//
// Datasets are gonum matrices with one column per point and one row per
// dimension. A model is trained once over a reference set and can then serve
// any number of searches:
//
//	cfg := rangesearch.DefaultConfig()
//	cfg.TreeType = rangesearch.TreeKD
//	model, err := rangesearch.Train(reference, cfg)
//	neighbors, distances, err := model.Search(queries, rangesearch.Range{Lo: 0, Hi: 2.5})
//	// neighbors[i] lists the reference column indices in range of query i
//	// distances[i][j] is the distance from query i to neighbors[i][j]
//
// Passing a nil query matrix searches the reference set against itself; in
// that mode a point is never reported as its own neighbor.
//
// # Search strategies
//
// By default Search runs a dual-tree traversal, which indexes the query set
// too and prunes whole query subtrees at once. Config.SingleMode descends
// the reference tree once per query instead, which wins for small query
// sets, and Config.Naive skips trees entirely and scans every pair, which is
// the sensible choice for tiny datasets and the yardstick for everything
// else. All three strategies return identical results.
//
// # Tree types
//
// Fourteen tree types are available through Config.TreeType, covering
// kd-trees, the rectangle-bound R-tree family, metric trees with ball and
// shell bounds, space-filling-curve trees, and random-projection trees.
// Rectangle-bound trees require one of the built-in Minkowski-family
// metrics; ball, cover, and vantage-point trees work with any Metric.
//
// Trained models serialize to a compact binary form with MarshalBinary or
// SaveTo and come back with LoadModel. LoadModelMmap maps the file instead
// of copying it, which keeps load time flat no matter how large the
// reference set is.
package rangesearch
