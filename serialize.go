package rangesearch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary model format, little-endian throughout:
//
//	header   48 bytes, magic "RSMF", versioned
//	basis    dims*dims float64            (random-basis models only)
//	dataset  n*dims float64               (row-major, original point order)
//	idx      n uint32                     (tree models only)
//	nodes    pre-order node records       (tree models only)
//
// A node record is a kind byte (0 leaf, 1 internal), begin and count as
// uint32, and the bound payload of the tree's bound kind: rectangle corners,
// or ball center and radius, or shell center and inner/outer radii. Internal
// nodes are followed by their left then right subtree. All offsets up to the
// dataset stay 8-byte aligned so a mapped file can expose the dataset as a
// float64 view without copying.

const (
	modelVersion    = 1
	modelHeaderSize = 48
)

var modelMagic = [4]byte{'R', 'S', 'M', 'F'}

const (
	flagNaive = 1 << iota
	flagSingleMode
	flagRandomBasis
	flagHasTree
)

type modelHeader struct {
	Magic      [4]byte
	Version    uint16
	TreeType   uint8
	MetricKind uint8
	Flags      uint8
	_          [3]byte
	LeafSize   uint32
	Dims       uint32
	NumPoints  uint32
	NumNodes   uint32
	_          uint32
	Seed       int64
	MinkowskiP float64
}

// metricKindOf maps a built-in metric to its serialization code. Custom
// metrics have no code and cannot be serialized.
func metricKindOf(m Metric) (kind uint8, minkowskiP float64, ok bool) {
	switch v := m.(type) {
	case EuclideanMetric:
		return 0, 0, true
	case ManhattanMetric:
		return 1, 0, true
	case ChebyshevMetric:
		return 2, 0, true
	case MinkowskiMetric:
		return 3, v.P, true
	default:
		return 0, 0, false
	}
}

func metricFromKind(kind uint8, minkowskiP float64) (Metric, error) {
	switch kind {
	case 0:
		return EuclideanMetric{}, nil
	case 1:
		return ManhattanMetric{}, nil
	case 2:
		return ChebyshevMetric{}, nil
	case 3:
		if minkowskiP < 1 {
			return nil, fmt.Errorf("rangesearch: Minkowski exponent %v in model header: %w", minkowskiP, ErrBadModel)
		}
		return MinkowskiMetric{P: minkowskiP}, nil
	default:
		return nil, fmt.Errorf("rangesearch: metric code %d in model header: %w", kind, ErrBadModel)
	}
}

// MarshalBinary encodes the model, implementing encoding.BinaryMarshaler.
func (m *Model) MarshalBinary() ([]byte, error) {
	if m.tree == nil && m.refData == nil {
		return nil, fmt.Errorf("rangesearch: cannot marshal an untrained model: %w", ErrNotTrained)
	}
	metricKind, minkowskiP, ok := metricKindOf(m.cfg.Metric)
	if !ok {
		return nil, fmt.Errorf("rangesearch: custom metrics do not serialize: %w", ErrUnsupportedMetric)
	}

	var flags uint8
	if m.cfg.Naive {
		flags |= flagNaive
	}
	if m.cfg.SingleMode {
		flags |= flagSingleMode
	}
	if m.cfg.RandomBasis {
		flags |= flagRandomBasis
	}
	var numNodes uint32
	if m.tree != nil {
		flags |= flagHasTree
		numNodes = uint32(m.tree.numNodes)
	}

	hdr := modelHeader{
		Magic:      modelMagic,
		Version:    modelVersion,
		TreeType:   treeTypeCode(m.cfg.TreeType),
		MetricKind: metricKind,
		Flags:      flags,
		LeafSize:   uint32(m.cfg.LeafSize),
		Dims:       uint32(m.dims),
		NumPoints:  uint32(m.n),
		NumNodes:   numNodes,
		Seed:       m.cfg.Seed,
		MinkowskiP: minkowskiP,
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	if m.basis != nil {
		if err := binary.Write(buf, binary.LittleEndian, m.basis); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, m.dataset()); err != nil {
		return nil, err
	}
	if m.tree != nil {
		idx := make([]uint32, m.n)
		for i, v := range m.tree.idx {
			idx[i] = uint32(v)
		}
		if err := binary.Write(buf, binary.LittleEndian, idx); err != nil {
			return nil, err
		}
		if err := writeNode(buf, m.tree.root); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func treeTypeCode(tt TreeType) uint8 {
	for i, v := range treeTypeOrder {
		if v == tt {
			return uint8(i)
		}
	}
	return 0
}

func writeNode(buf *bytes.Buffer, nd *Node) error {
	kind := uint8(0)
	if !nd.IsLeaf() {
		kind = 1
	}
	if err := binary.Write(buf, binary.LittleEndian, kind); err != nil {
		return err
	}
	span := [2]uint32{uint32(nd.begin), uint32(nd.count)}
	if err := binary.Write(buf, binary.LittleEndian, span); err != nil {
		return err
	}
	if err := writeBound(buf, nd.bound); err != nil {
		return err
	}
	if nd.IsLeaf() {
		return nil
	}
	if err := writeNode(buf, nd.left); err != nil {
		return err
	}
	return writeNode(buf, nd.right)
}

func writeBound(buf *bytes.Buffer, b Bound) error {
	switch v := b.(type) {
	case *HRectBound:
		if err := binary.Write(buf, binary.LittleEndian, v.lo); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, v.hi)
	case *BallBound:
		if err := binary.Write(buf, binary.LittleEndian, v.center); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, v.radius)
	case *HollowBallBound:
		if err := binary.Write(buf, binary.LittleEndian, v.center); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, [2]float64{v.inner, v.outer})
	default:
		return fmt.Errorf("rangesearch: cannot serialize bound of type %T: %w", b, ErrBadModel)
	}
}

// UnmarshalBinary decodes a model produced by MarshalBinary, implementing
// encoding.BinaryUnmarshaler. All sections are copied out of data.
func (m *Model) UnmarshalBinary(data []byte) error {
	decoded, err := decodeModel(data, false)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// modelReader is a bounds-checked cursor over an encoded model.
type modelReader struct {
	buf []byte
	off int
}

func (r *modelReader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("rangesearch: model data truncated at offset %d: %w", r.off, ErrBadModel)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *modelReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *modelReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *modelReader) f64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *modelReader) f64s(count int) ([]float64, error) {
	b, err := r.take(count * 8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

// modelDecoder rebuilds a Model from its encoded form. With zeroCopy set the
// dataset section stays a float64 view into the underlying buffer, which is
// how mapped files avoid loading the points into the heap.
type modelDecoder struct {
	r         modelReader
	hdr       modelHeader
	metric    Metric
	boundKind boundKind
	dims      int
	n         int
	seen      uint32 // nodes decoded so far, bounded by hdr.NumNodes
}

func decodeModel(data []byte, zeroCopy bool) (*Model, error) {
	d := &modelDecoder{r: modelReader{buf: data}}
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	var basis []float64
	if d.hdr.Flags&flagRandomBasis != 0 {
		var err error
		if basis, err = d.r.f64s(d.dims * d.dims); err != nil {
			return nil, err
		}
	}

	var dataset []float64
	if zeroCopy && d.r.off%8 == 0 {
		b, err := d.r.take(d.n * d.dims * 8)
		if err != nil {
			return nil, err
		}
		dataset = float64View(b)
	} else {
		var err error
		if dataset, err = d.r.f64s(d.n * d.dims); err != nil {
			return nil, err
		}
	}

	cfg := Config{
		TreeType:    treeTypeOrder[d.hdr.TreeType],
		LeafSize:    int(d.hdr.LeafSize),
		Naive:       d.hdr.Flags&flagNaive != 0,
		SingleMode:  d.hdr.Flags&flagSingleMode != 0,
		RandomBasis: d.hdr.Flags&flagRandomBasis != 0,
		Seed:        d.hdr.Seed,
		Metric:      d.metric,
	}
	applyDefaults(&cfg)

	m := &Model{cfg: cfg, dims: d.dims, n: d.n, basis: basis}
	if d.hdr.Flags&flagHasTree == 0 {
		m.refData = dataset
		return m, d.expectEnd()
	}

	idx, err := d.readPermutation()
	if err != nil {
		return nil, err
	}
	root, err := d.readNode(0, d.n)
	if err != nil {
		return nil, err
	}
	if d.seen != d.hdr.NumNodes {
		return nil, fmt.Errorf("rangesearch: model has %d nodes, header says %d: %w", d.seen, d.hdr.NumNodes, ErrBadModel)
	}
	m.tree = &Tree{
		typ:      cfg.TreeType,
		metric:   d.metric,
		leafSize: cfg.LeafSize,
		dims:     d.dims,
		n:        d.n,
		data:     dataset,
		idx:      idx,
		root:     root,
		numNodes: int(d.hdr.NumNodes),
	}
	return m, d.expectEnd()
}

func (d *modelDecoder) readHeader() error {
	b, err := d.r.take(modelHeaderSize)
	if err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &d.hdr); err != nil {
		return err
	}
	if d.hdr.Magic != modelMagic {
		return fmt.Errorf("rangesearch: bad model magic %q: %w", d.hdr.Magic[:], ErrBadModel)
	}
	if d.hdr.Version != modelVersion {
		return fmt.Errorf("rangesearch: unsupported model version %d: %w", d.hdr.Version, ErrBadModel)
	}
	if int(d.hdr.TreeType) >= len(treeTypeOrder) {
		return fmt.Errorf("rangesearch: tree type code %d in model header: %w", d.hdr.TreeType, ErrBadModel)
	}
	naive := d.hdr.Flags&flagNaive != 0
	hasTree := d.hdr.Flags&flagHasTree != 0
	if !naive && !hasTree {
		return fmt.Errorf("rangesearch: model has neither a tree nor the naive flag: %w", ErrBadModel)
	}
	if d.hdr.Dims == 0 || d.hdr.NumPoints == 0 {
		return fmt.Errorf("rangesearch: model header describes a %dx%d dataset: %w", d.hdr.Dims, d.hdr.NumPoints, ErrBadModel)
	}
	if d.hdr.LeafSize == 0 {
		return fmt.Errorf("rangesearch: model header leaf size is 0: %w", ErrBadModel)
	}
	if d.metric, err = metricFromKind(d.hdr.MetricKind, d.hdr.MinkowskiP); err != nil {
		return err
	}
	d.boundKind = treeBoundKind(treeTypeOrder[d.hdr.TreeType])
	d.dims = int(d.hdr.Dims)
	d.n = int(d.hdr.NumPoints)
	return nil
}

func (d *modelDecoder) readPermutation() ([]int, error) {
	b, err := d.r.take(d.n * 4)
	if err != nil {
		return nil, err
	}
	idx := make([]int, d.n)
	seen := make([]bool, d.n)
	for i := range idx {
		v := binary.LittleEndian.Uint32(b[i*4:])
		if int(v) >= d.n || seen[v] {
			return nil, fmt.Errorf("rangesearch: model permutation is not a bijection: %w", ErrBadModel)
		}
		seen[v] = true
		idx[i] = int(v)
	}
	return idx, nil
}

// readNode decodes the subtree covering [begin, begin+count), validating
// the recorded span against the span implied by the parent.
func (d *modelDecoder) readNode(begin, count int) (*Node, error) {
	if d.seen >= d.hdr.NumNodes {
		return nil, fmt.Errorf("rangesearch: model has more nodes than its header declares: %w", ErrBadModel)
	}
	d.seen++

	kind, err := d.r.u8()
	if err != nil {
		return nil, err
	}
	if kind > 1 {
		return nil, fmt.Errorf("rangesearch: node kind %d in model data: %w", kind, ErrBadModel)
	}
	b32, err := d.r.u32()
	if err != nil {
		return nil, err
	}
	c32, err := d.r.u32()
	if err != nil {
		return nil, err
	}
	if int(b32) != begin || int(c32) != count || count < 1 {
		return nil, fmt.Errorf("rangesearch: node span [%d,+%d) does not partition its parent: %w", b32, c32, ErrBadModel)
	}

	bound, err := d.readBound()
	if err != nil {
		return nil, err
	}
	nd := &Node{begin: begin, count: count, bound: bound}
	if kind == 0 {
		return nd, nil
	}

	// The left child's size is recoverable from its own record; peek it.
	if d.r.off+9 > len(d.r.buf) {
		return nil, fmt.Errorf("rangesearch: model data truncated in node stream: %w", ErrBadModel)
	}
	leftCount := int(binary.LittleEndian.Uint32(d.r.buf[d.r.off+5:]))
	if leftCount < 1 || leftCount >= count {
		return nil, fmt.Errorf("rangesearch: child span %d outside parent of %d points: %w", leftCount, count, ErrBadModel)
	}
	if nd.left, err = d.readNode(begin, leftCount); err != nil {
		return nil, err
	}
	if nd.right, err = d.readNode(begin+leftCount, count-leftCount); err != nil {
		return nil, err
	}
	return nd, nil
}

func (d *modelDecoder) readBound() (Bound, error) {
	switch d.boundKind {
	case ballBoundKind:
		center, err := d.r.f64s(d.dims)
		if err != nil {
			return nil, err
		}
		radius, err := d.r.f64()
		if err != nil {
			return nil, err
		}
		return &BallBound{center: center, radius: radius, metric: d.metric}, nil
	case hollowBoundKind:
		center, err := d.r.f64s(d.dims)
		if err != nil {
			return nil, err
		}
		inner, err := d.r.f64()
		if err != nil {
			return nil, err
		}
		outer, err := d.r.f64()
		if err != nil {
			return nil, err
		}
		return &HollowBallBound{center: center, inner: inner, outer: outer, metric: d.metric}, nil
	default:
		lo, err := d.r.f64s(d.dims)
		if err != nil {
			return nil, err
		}
		hi, err := d.r.f64s(d.dims)
		if err != nil {
			return nil, err
		}
		power, _ := metricPower(d.metric)
		return &HRectBound{lo: lo, hi: hi, power: power}, nil
	}
}

func (d *modelDecoder) expectEnd() error {
	if d.r.off != len(d.r.buf) {
		return fmt.Errorf("rangesearch: %d trailing bytes after model data: %w", len(d.r.buf)-d.r.off, ErrBadModel)
	}
	return nil
}
