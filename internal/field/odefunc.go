// Package field implements the learned vector field driving the neural ODE
// models: a small tanh network mapping (time, state) to a state derivative,
// with hand-derived vector-Jacobian products for the adjoint pass.
package field

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/nn"
)

// Config describes the vector-field network.
type Config struct {
	// Dim is the state dimension seen by the solver (observed + augmented).
	Dim int
	// Hidden is the width of both hidden layers.
	Hidden int
	// TimeDependent concatenates the broadcast time to the state before the
	// first layer.
	TimeDependent bool
}

// OdeFunc is the vector field dz/dt = f(t, z): linear-tanh-linear-tanh-linear.
// Every Derive and VJP call increments the shared evaluation counter; the
// counter is never reset here.
type OdeFunc struct {
	cfg  Config
	fc1  *nn.Linear
	fc15 *nn.Linear
	fc2  *nn.Linear
	nfe  *dynamo.Counter
}

func NewOdeFunc(cfg Config, nfe *dynamo.Counter, rng *rand.Rand) *OdeFunc {
	if cfg.Hidden == 0 {
		cfg.Hidden = 50
	}
	in := cfg.Dim
	if cfg.TimeDependent {
		in++
	}
	return &OdeFunc{
		cfg:  cfg,
		fc1:  nn.NewLinear("ode_func.fc1", in, cfg.Hidden, rng),
		fc15: nn.NewLinear("ode_func.fc1_5", cfg.Hidden, cfg.Hidden, rng),
		fc2:  nn.NewLinear("ode_func.fc2", cfg.Hidden, cfg.Dim, rng),
		nfe:  nfe,
	}
}

func (f *OdeFunc) Dim() int { return f.cfg.Dim }

func (f *OdeFunc) Params() []*nn.Param {
	var out []*nn.Param
	out = append(out, f.fc1.Params()...)
	out = append(out, f.fc15.Params()...)
	out = append(out, f.fc2.Params()...)
	return out
}

func (f *OdeFunc) NumParams() int { return nn.NumParams(f.Params()) }

// input builds the network input, prepending the broadcast time column when
// the field is time dependent.
func (f *OdeFunc) input(t float64, z *mat.Dense) *mat.Dense {
	if !f.cfg.TimeDependent {
		return z
	}
	b, d := z.Dims()
	x := mat.NewDense(b, d+1, nil)
	for i := 0; i < b; i++ {
		x.Set(i, 0, t)
		for j := 0; j < d; j++ {
			x.Set(i, j+1, z.At(i, j))
		}
	}
	return x
}

// Derive evaluates dz/dt for a (batch x dim) state.
func (f *OdeFunc) Derive(t float64, z *mat.Dense) *mat.Dense {
	f.nfe.Inc()
	x := f.input(t, z)
	h1 := nn.TanhOf(f.fc1.Apply(x))
	h2 := nn.TanhOf(f.fc15.Apply(h1))
	return f.fc2.Apply(h2)
}

// VJP evaluates a^T df/dz and a^T df/dtheta at (t, z), recomputing the
// forward activations locally so the adjoint pass needs no stored tape.
// The parameter product is laid out as
// [fc1.W fc1.b fc1_5.W fc1_5.b fc2.W fc2.b], row-major, summed over the batch.
func (f *OdeFunc) VJP(t float64, z, adj *mat.Dense) (*mat.Dense, []float64) {
	f.nfe.Inc()
	x := f.input(t, z)
	h1 := nn.TanhOf(f.fc1.Apply(x))
	h2 := nn.TanhOf(f.fc15.Apply(h1))

	dtheta := make([]float64, 0, f.NumParams())

	dh2, g2 := linearVJP(f.fc2, h2, adj)
	da2 := nn.TanhBackward(h2, dh2)
	dh1, g15 := linearVJP(f.fc15, h1, da2)
	da1 := nn.TanhBackward(h1, dh1)
	dx, g1 := linearVJP(f.fc1, x, da1)

	dtheta = append(dtheta, g1...)
	dtheta = append(dtheta, g15...)
	dtheta = append(dtheta, g2...)

	if !f.cfg.TimeDependent {
		return dx, dtheta
	}
	b, d := z.Dims()
	dz := mat.NewDense(b, d, nil)
	for i := 0; i < b; i++ {
		for j := 0; j < d; j++ {
			dz.Set(i, j, dx.At(i, j+1))
		}
	}
	return dz, dtheta
}

// AccumulateGrad adds a flat parameter-gradient vector (the integrated g of
// the adjoint system) into the field's parameter gradients.
func (f *OdeFunc) AccumulateGrad(flat []float64) {
	idx := 0
	for _, p := range f.Params() {
		r, c := p.Grad.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				p.Grad.Set(i, j, p.Grad.At(i, j)+flat[idx])
				idx++
			}
		}
	}
}

// linearVJP computes dx, plus [dW db] flattened row-major, without touching
// the layer's gradient buffers.
func linearVJP(l *nn.Linear, x, dy *mat.Dense) (*mat.Dense, []float64) {
	var dw mat.Dense
	dw.Mul(dy.T(), x)

	b, _ := dy.Dims()
	dx := mat.NewDense(b, l.In, nil)
	dx.Mul(dy, l.W.Value)

	flat := make([]float64, 0, l.Out*l.In+l.Out)
	for i := 0; i < l.Out; i++ {
		for j := 0; j < l.In; j++ {
			flat = append(flat, dw.At(i, j))
		}
	}
	for j := 0; j < l.Out; j++ {
		s := 0.0
		for i := 0; i < b; i++ {
			s += dy.At(i, j)
		}
		flat = append(flat, s)
	}
	return dx, flat
}
