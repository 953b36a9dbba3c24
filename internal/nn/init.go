package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// XavierFill initializes w uniformly in [-limit, limit] with
// limit = sqrt(6 / (fanIn + fanOut)).
func XavierFill(w *mat.Dense, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.Set(i, j, (2*rng.Float64()-1)*limit)
		}
	}
}

// NormalFill initializes w from N(0, std^2).
func NormalFill(w *mat.Dense, std float64, rng *rand.Rand) {
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.Set(i, j, rng.NormFloat64()*std)
		}
	}
}
