package rangesearch

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// randomOrthogonalBasis returns a dims×dims orthogonal matrix in flat
// row-major form: the Q factor of a seeded Gaussian matrix, columns
// sign-fixed by the diagonal of R so a given seed yields a unique basis.
// Orthogonality preserves pairwise distances, which keeps search results
// invariant under the projection.
func randomOrthogonalBasis(dims int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	a := mat.NewDense(dims, dims, nil)
	for i := 0; i < dims; i++ {
		for j := 0; j < dims; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	out := make([]float64, dims*dims)
	for i := 0; i < dims; i++ {
		for j := 0; j < dims; j++ {
			v := q.At(i, j)
			if r.At(j, j) < 0 {
				v = -v
			}
			out[i*dims+j] = v
		}
	}
	return out
}

// projectPoints maps every point x to Q·x. With points as rows this is X·Qᵀ.
func projectPoints(basis, points []float64, n, dims int) []float64 {
	q := mat.NewDense(dims, dims, basis)
	x := mat.NewDense(n, dims, points)
	var y mat.Dense
	y.Mul(x, q.T())
	return y.RawMatrix().Data
}
