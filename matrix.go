package rangesearch

import "gonum.org/v1/gonum/mat"

// Point matrices follow the column-major convention of the public API: a
// dims×n matrix holds n points of dimensionality dims, one per column.
// Internally points live in a flat row-major array, point p occupying
// data[p*dims : (p+1)*dims].

// flattenColumns converts a column-per-point matrix into the flat row-major
// layout.
func flattenColumns(m *mat.Dense) (data []float64, n, dims int) {
	dims, n = m.Dims()
	data = make([]float64, n*dims)
	for p := 0; p < n; p++ {
		for d := 0; d < dims; d++ {
			data[p*dims+d] = m.At(d, p)
		}
	}
	return data, n, dims
}

// pointsToColumns converts flat row-major points back into a column-per-point
// matrix.
func pointsToColumns(data []float64, n, dims int) *mat.Dense {
	m := mat.NewDense(dims, n, nil)
	for p := 0; p < n; p++ {
		for d := 0; d < dims; d++ {
			m.Set(d, p, data[p*dims+d])
		}
	}
	return m
}
