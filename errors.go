package rangesearch

import "errors"

// Sentinel errors returned by Train, Search, and model persistence. Callers
// match them with errors.Is; returned errors usually wrap a sentinel with
// the offending value.
var (
	// ErrInvalidRange indicates a search interval with negative lower bound,
	// upper below lower, or NaN endpoints.
	ErrInvalidRange = errors.New("invalid search range")

	// ErrInvalidLeafSize indicates a leaf size below 1.
	ErrInvalidLeafSize = errors.New("invalid leaf size")

	// ErrEmptyReferenceSet indicates a nil or zero-column reference matrix.
	ErrEmptyReferenceSet = errors.New("empty reference set")

	// ErrUnknownTreeType indicates a tree type tag outside the supported set.
	ErrUnknownTreeType = errors.New("unknown tree type")

	// ErrIncompatibleModes indicates Naive and SingleMode were both requested.
	ErrIncompatibleModes = errors.New("incompatible search modes")

	// ErrUnsupportedMetric indicates a metric the requested configuration
	// cannot carry: rectangle-bounded trees require one of the built-in
	// Minkowski-family metrics, and only those metrics serialize.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrDimensionMismatch indicates a query set whose dimensionality differs
	// from the reference set the model was trained on.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotTrained indicates a Search on a zero Model value. Models come
	// from Train, LoadModel, or LoadModelMmap.
	ErrNotTrained = errors.New("model not trained")

	// ErrBadModel indicates a model file or byte stream that fails magic,
	// version, or structural validation.
	ErrBadModel = errors.New("malformed model data")
)
