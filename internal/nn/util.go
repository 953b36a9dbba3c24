package nn

import "gonum.org/v1/gonum/mat"

// addRow adds the 1xC row vector b to every row of the BxC matrix x, in place.
func addRow(x *mat.Dense, b *mat.Dense) {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x.Set(i, j, x.At(i, j)+b.At(0, j))
		}
	}
}

// colSumInto accumulates the column sums of dy into the 1xC gradient row.
func colSumInto(grad *mat.Dense, dy *mat.Dense) {
	r, c := dy.Dims()
	for j := 0; j < c; j++ {
		s := 0.0
		for i := 0; i < r; i++ {
			s += dy.At(i, j)
		}
		grad.Set(0, j, grad.At(0, j)+s)
	}
}

// mulElem returns a (.) b as a fresh matrix.
func mulElem(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(a, b)
	return out
}

func zerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func clone(a *mat.Dense) *mat.Dense {
	out := &mat.Dense{}
	out.CloneFrom(a)
	return out
}
