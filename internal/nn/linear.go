package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer y = x W^T + b operating on row batches.
type Linear struct {
	In, Out int
	W       *Param // Out x In
	B       *Param // 1 x Out

	x *mat.Dense // input cached by Forward for Backward
}

func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:  in,
		Out: out,
		W:   NewParam(name+".weight", out, in),
		B:   NewParam(name+".bias", 1, out),
	}
	XavierFill(l.W.Value, in, out, rng)
	return l
}

func (l *Linear) Params() []*Param { return []*Param{l.W, l.B} }

// Forward computes the layer output for a (batch x In) input and caches the
// input for Backward.
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.x = x
	return l.Apply(x)
}

// Apply computes the output without touching the Backward cache.
func (l *Linear) Apply(x *mat.Dense) *mat.Dense {
	b, _ := x.Dims()
	y := mat.NewDense(b, l.Out, nil)
	y.Mul(x, l.W.Value.T())
	addRow(y, l.B.Value)
	return y
}

// Backward propagates dy through the cached input, accumulating parameter
// gradients, and returns dx.
func (l *Linear) Backward(dy *mat.Dense) *mat.Dense {
	return l.BackwardAt(l.x, dy)
}

// BackwardAt is Backward against an explicit input, used when the forward
// activations are recomputed rather than cached (adjoint pass).
func (l *Linear) BackwardAt(x, dy *mat.Dense) *mat.Dense {
	var dw mat.Dense
	dw.Mul(dy.T(), x)
	l.W.Grad.Add(l.W.Grad, &dw)
	colSumInto(l.B.Grad, dy)

	b, _ := dy.Dims()
	dx := mat.NewDense(b, l.In, nil)
	dx.Mul(dy, l.W.Value)
	return dx
}
