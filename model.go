package rangesearch

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// Config controls model training and search behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// TreeType selects the space-partitioning structure built over the
	// reference set. All types answer every query identically; they differ
	// in build cost and pruning power. Ignored in naive mode. Default: kd.
	TreeType TreeType

	// LeafSize is the maximum number of points per tree leaf. Larger leaves
	// build faster and prune less. Must be >= 1. Default: 20.
	LeafSize int

	// Naive disables tree construction and pruning entirely; every search
	// compares each query against every reference point. Default: false.
	Naive bool

	// SingleMode answers each query with its own tree traversal instead of
	// one dual-tree traversal over the whole query set. Default: false.
	SingleMode bool

	// RandomBasis rotates the reference set (and every query set) through a
	// seeded random orthogonal basis before indexing. Distances are
	// preserved, so results are unchanged. Default: false.
	RandomBasis bool

	// Seed drives the random basis and the random split directions of the
	// rp and max-rp trees. The same seed reproduces the same model.
	// Default: 0.
	Seed int64

	// Metric is the distance function. Rectangle-bounded tree types accept
	// only the built-in Minkowski-family metrics; ball, cover, and vp carry
	// any metric satisfying the triangle inequality.
	// Default: EuclideanMetric.
	Metric Metric

	// Workers is the number of goroutines a batch Search may use in naive
	// and single-tree modes. Values <= 1 keep Search on the calling
	// goroutine. Dual-tree search always runs serially. Not serialized.
	// Default: 1.
	Workers int
}

// DefaultConfig returns a Config with the default tree type, leaf size, and
// metric.
func DefaultConfig() Config {
	return Config{
		TreeType: TreeKD,
		LeafSize: 20,
		Metric:   EuclideanMetric{},
		Workers:  1,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.TreeType == "" {
		cfg.TreeType = TreeKD
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 20
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive
// error if not.
func validateConfig(cfg *Config) error {
	if _, err := ParseTreeType(string(cfg.TreeType)); err != nil {
		return err
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("rangesearch: LeafSize must be >= 1, got %d: %w", cfg.LeafSize, ErrInvalidLeafSize)
	}
	if cfg.Naive && cfg.SingleMode {
		return fmt.Errorf("rangesearch: Naive and SingleMode are mutually exclusive: %w", ErrIncompatibleModes)
	}
	if !cfg.Naive && treeBoundKind(cfg.TreeType) == rectBoundKind {
		if _, ok := metricPower(cfg.Metric); !ok {
			return fmt.Errorf("rangesearch: tree type %q needs a Minkowski-family metric: %w", cfg.TreeType, ErrUnsupportedMetric)
		}
	}
	return nil
}

// Model is a trained range-search index: the (possibly rotated) reference
// set, the tree built over it unless in naive mode, and the configuration
// that produced both. Useful models come only from Train, LoadModel, or
// LoadModelMmap; the zero Model fails every Search with ErrNotTrained.
// A Model is safe for concurrent Search calls.
type Model struct {
	cfg     Config
	dims    int
	n       int
	basis   []float64 // dims×dims row-major, nil unless RandomBasis
	tree    *Tree     // nil in naive mode
	refData []float64 // naive mode only: reference points, row-major
	closer  io.Closer // set by LoadModelMmap
}

// Train builds a range-search model over the reference set, a dims×n matrix
// with one point per column. The matrix is copied; the caller may modify it
// afterwards.
func Train(reference *mat.Dense, cfg Config) (*Model, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if reference == nil {
		return nil, fmt.Errorf("rangesearch: reference matrix is nil: %w", ErrEmptyReferenceSet)
	}
	dims, n := reference.Dims()
	if n == 0 || dims == 0 {
		return nil, fmt.Errorf("rangesearch: reference matrix is %dx%d: %w", dims, n, ErrEmptyReferenceSet)
	}

	data, _, _ := flattenColumns(reference)
	var basis []float64
	if cfg.RandomBasis {
		basis = randomOrthogonalBasis(dims, cfg.Seed)
		data = projectPoints(basis, data, n, dims)
	}

	m := &Model{cfg: cfg, dims: dims, n: n, basis: basis}
	if cfg.Naive {
		m.refData = data
		return m, nil
	}
	tree, err := NewTree(cfg.TreeType, data, n, dims, cfg.Metric, cfg.LeafSize, cfg.Seed)
	if err != nil {
		return nil, err
	}
	m.tree = tree
	return m, nil
}

// Search reports, for each query point, the reference points whose distance
// lies in the closed interval window, as parallel index and distance lists
// in reference-set order of the original input. query is a dims×nq matrix
// with one point per column; a nil query searches the reference set against
// itself, excluding each point from its own result list.
func (m *Model) Search(query *mat.Dense, window Range) ([][]int, [][]float64, error) {
	if m.tree == nil && m.refData == nil {
		return nil, nil, fmt.Errorf("rangesearch: Search on an untrained model: %w", ErrNotTrained)
	}
	if err := validateRange(window); err != nil {
		return nil, nil, err
	}

	mono := query == nil
	var qdata []float64
	var nq int
	if mono {
		qdata, nq = m.dataset(), m.n
	} else {
		qr, qc := query.Dims()
		if qr != m.dims {
			return nil, nil, fmt.Errorf("rangesearch: query dimensionality %d does not match model dimensionality %d: %w", qr, m.dims, ErrDimensionMismatch)
		}
		nq = qc
		if nq > 0 {
			qdata, _, _ = flattenColumns(query)
			if m.basis != nil {
				qdata = projectPoints(m.basis, qdata, nq, m.dims)
			}
		}
	}

	res := newResultSet(nq)
	if nq == 0 {
		return res.neighbors, res.distances, nil
	}

	switch {
	case m.cfg.Naive || m.tree == nil:
		ref := m.dataset()
		forEachChunk(nq, m.cfg.Workers, func(start, end int) {
			naiveSearch(res, ref, m.n, m.dims, qdata, start, end, m.cfg.Metric, window, mono)
		})

	case m.cfg.SingleMode:
		dims := m.dims
		forEachChunk(nq, m.cfg.Workers, func(start, end int) {
			tr := newSingleTraverser(m.tree, window, res)
			for q := start; q < end; q++ {
				self := -1
				if mono {
					self = q
				}
				tr.search(qdata[q*dims:(q+1)*dims], q, self)
			}
		})

	default:
		qtree := m.tree
		if !mono {
			var err error
			qtree, err = NewTree(m.cfg.TreeType, qdata, nq, m.dims, m.cfg.Metric, m.cfg.LeafSize, m.cfg.Seed)
			if err != nil {
				return nil, nil, err
			}
		}
		tr := &dualTraverser{qtree: qtree, rtree: m.tree, window: window, mono: mono, res: res}
		tr.run()
	}

	return res.neighbors, res.distances, nil
}

// dataset returns the stored reference points in flat row-major original
// order: the tree's data outside naive mode, the retained copy inside it.
func (m *Model) dataset() []float64 {
	if m.tree != nil {
		return m.tree.data
	}
	return m.refData
}

// TreeType returns the configured tree type.
func (m *Model) TreeType() TreeType { return m.cfg.TreeType }

// LeafSize returns the configured leaf size.
func (m *Model) LeafSize() int { return m.cfg.LeafSize }

// Naive reports whether searches run exhaustively without a tree.
func (m *Model) Naive() bool { return m.cfg.Naive }

// SingleMode reports whether searches traverse once per query point.
func (m *Model) SingleMode() bool { return m.cfg.SingleMode }

// SetNaive makes subsequent searches scan exhaustively instead of using the
// tree. Clearing it restores tree search, except on models trained naive,
// which have no tree to return to. When both naive and single-tree modes are
// set, naive wins.
func (m *Model) SetNaive(v bool) { m.cfg.Naive = v }

// SetSingleMode makes subsequent searches traverse the reference tree once
// per query point instead of running one dual-tree traversal over the whole
// query set.
func (m *Model) SetSingleMode(v bool) { m.cfg.SingleMode = v }

// RandomBasis reports whether the reference set was rotated through a random
// orthogonal basis.
func (m *Model) RandomBasis() bool { return m.cfg.RandomBasis }

// Seed returns the seed the model was trained with.
func (m *Model) Seed() int64 { return m.cfg.Seed }

// Dims returns the dimensionality of the indexed points.
func (m *Model) Dims() int { return m.dims }

// NumPoints returns the number of indexed reference points.
func (m *Model) NumPoints() int { return m.n }

// Tree returns the underlying tree, nil for naive models.
func (m *Model) Tree() *Tree { return m.tree }

// Dataset returns a copy of the stored reference set as a column-per-point
// matrix. With RandomBasis the points are the rotated ones actually indexed.
func (m *Model) Dataset() *mat.Dense {
	return pointsToColumns(m.dataset(), m.n, m.dims)
}

// Close releases the mapping behind a model from LoadModelMmap. It is a
// no-op for models built by Train or loaded with LoadModel. The model must
// not be used after Close.
func (m *Model) Close() error {
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}
