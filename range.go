package rangesearch

import (
	"fmt"
	"math"
)

// Range is a closed interval [Lo, Hi] of distances. Search reports every
// reference point whose distance to the query lies inside the interval,
// endpoints included.
type Range struct {
	Lo float64
	Hi float64
}

// Contains reports whether d lies inside the interval.
func (r Range) Contains(d float64) bool { return r.Lo <= d && d <= r.Hi }

// ContainsRange reports whether o lies entirely inside the interval.
func (r Range) ContainsRange(o Range) bool { return r.Lo <= o.Lo && o.Hi <= r.Hi }

// Intersects reports whether the two intervals share at least one value.
func (r Range) Intersects(o Range) bool { return r.Lo <= o.Hi && o.Lo <= r.Hi }

// Width returns Hi - Lo.
func (r Range) Width() float64 { return r.Hi - r.Lo }

// validateRange rejects intervals with NaN endpoints, a negative lower
// bound, or an upper bound below the lower. Zero width is allowed: [d, d]
// matches exact distances, including zero.
func validateRange(r Range) error {
	if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) {
		return fmt.Errorf("rangesearch: interval endpoints must not be NaN: %w", ErrInvalidRange)
	}
	if r.Lo < 0 {
		return fmt.Errorf("rangesearch: lower bound %v is negative: %w", r.Lo, ErrInvalidRange)
	}
	if r.Hi < r.Lo {
		return fmt.Errorf("rangesearch: upper bound %v below lower bound %v: %w", r.Hi, r.Lo, ErrInvalidRange)
	}
	return nil
}
