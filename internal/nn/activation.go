package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tanh is an elementwise tanh activation caching its output for Backward.
type Tanh struct {
	y *mat.Dense
}

func (a *Tanh) Forward(x *mat.Dense) *mat.Dense {
	a.y = TanhOf(x)
	return a.y
}

func (a *Tanh) Backward(dy *mat.Dense) *mat.Dense {
	return TanhBackward(a.y, dy)
}

// Sigmoid is an elementwise logistic activation caching its output.
type Sigmoid struct {
	y *mat.Dense
}

func (a *Sigmoid) Forward(x *mat.Dense) *mat.Dense {
	a.y = SigmoidOf(x)
	return a.y
}

func (a *Sigmoid) Backward(dy *mat.Dense) *mat.Dense {
	return SigmoidBackward(a.y, dy)
}

// TanhOf returns tanh applied elementwise.
func TanhOf(x *mat.Dense) *mat.Dense {
	y := zerosLike(x)
	y.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
	return y
}

// TanhBackward returns dy (.) (1 - y^2) for y = tanh(x).
func TanhBackward(y, dy *mat.Dense) *mat.Dense {
	dx := zerosLike(dy)
	r, c := dy.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t := y.At(i, j)
			dx.Set(i, j, dy.At(i, j)*(1-t*t))
		}
	}
	return dx
}

// SigmoidOf returns the logistic function applied elementwise.
func SigmoidOf(x *mat.Dense) *mat.Dense {
	y := zerosLike(x)
	y.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, x)
	return y
}

// SigmoidBackward returns dy (.) y(1-y) for y = sigmoid(x).
func SigmoidBackward(y, dy *mat.Dense) *mat.Dense {
	dx := zerosLike(dy)
	r, c := dy.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s := y.At(i, j)
			dx.Set(i, j, dy.At(i, j)*s*(1-s))
		}
	}
	return dx
}
