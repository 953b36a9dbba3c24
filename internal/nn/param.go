package nn

import "gonum.org/v1/gonum/mat"

// Param is one named trainable tensor with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func NewParam(name string, r, c int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(r, c, nil),
		Grad:  mat.NewDense(r, c, nil),
	}
}

func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Size returns the number of scalar entries in the parameter.
func (p *Param) Size() int {
	r, c := p.Value.Dims()
	return r * c
}

// ZeroGrads clears the gradients of every parameter in the set.
func ZeroGrads(params []*Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// NumParams counts scalar parameters across the set.
func NumParams(params []*Param) int {
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n
}
