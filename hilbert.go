package rangesearch

// Space-filling curve keys for the hilbert-r and ub splits. Coordinates are
// quantized against the node rectangle to a fixed number of bits per
// dimension, then linearized along the Hilbert curve (Skilling's transpose
// algorithm) or the Morton Z-order curve. Sorting a node's points by key
// groups spatial neighbors into the same half.

// curveBits returns the bits of resolution per dimension so that the
// interleaved key fits in 64 bits, capped at 16. Dimensions beyond 64 do not
// influence the ordering.
func curveBits(dims int) int {
	if dims > 64 {
		dims = 64
	}
	b := 64 / dims
	if b > 16 {
		b = 16
	}
	if b < 1 {
		b = 1
	}
	return b
}

// quantizeCoord maps v in [lo, hi] onto the integer grid [0, 2^bits-1].
func quantizeCoord(v, lo, hi float64, bits int) uint32 {
	maxCell := uint32(1)<<uint(bits) - 1
	if hi <= lo {
		return 0
	}
	scaled := (v - lo) / (hi - lo) * float64(maxCell)
	if scaled <= 0 {
		return 0
	}
	if scaled >= float64(maxCell) {
		return maxCell
	}
	return uint32(scaled)
}

// hilbertKey returns the rank of the quantized cell along the
// len(coords)-dimensional Hilbert curve with the given bits per dimension.
// coords is clobbered.
func hilbertKey(coords []uint32, bits int) uint64 {
	axesToTranspose(coords, bits)
	return interleaveBits(coords, bits)
}

// mortonKey returns the Morton (Z-order) code of the quantized cell.
func mortonKey(coords []uint32, bits int) uint64 {
	return interleaveBits(coords, bits)
}

// axesToTranspose converts cell coordinates into the Hilbert transpose
// representation in place (Skilling, "Programming the Hilbert curve", 2004).
// Interleaving the transposed words MSB-first yields the curve rank.
func axesToTranspose(x []uint32, bits int) {
	n := len(x)
	m := uint32(1) << uint(bits-1)

	// Inverse undo.
	for q := m; q > 1; q >>= 1 {
		p := q - 1
		for i := 0; i < n; i++ {
			if x[i]&q != 0 {
				x[0] ^= p
			} else {
				t := (x[0] ^ x[i]) & p
				x[0] ^= t
				x[i] ^= t
			}
		}
	}

	// Gray encode.
	for i := 1; i < n; i++ {
		x[i] ^= x[i-1]
	}
	var t uint32
	for q := uint32(2); q != m<<1; q <<= 1 {
		if x[n-1]&q != 0 {
			t ^= q - 1
		}
	}
	for i := 0; i < n; i++ {
		x[i] ^= t
	}
}

// interleaveBits packs the words into one key, taking the most significant
// bit of each word in turn. At most 64 words participate.
func interleaveBits(words []uint32, bits int) uint64 {
	if len(words) > 64 {
		words = words[:64]
	}
	var key uint64
	for bit := bits - 1; bit >= 0; bit-- {
		for _, w := range words {
			key = key<<1 | uint64((w>>uint(bit))&1)
		}
	}
	return key
}
