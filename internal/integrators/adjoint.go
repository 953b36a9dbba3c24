package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dynamo"
)

// SolveAdjoint computes gradients of a loss through a forward Solve by
// integrating the augmented adjoint system backward in time:
//
//	z' = f(t, z)
//	a' = -a^T df/dz
//	g' = -a^T df/dtheta
//
// sol holds the forward solution at the query times and grads the loss
// gradient dL/dz(t_i) at each. The state component is re-pinned to the
// forward solution at every query time to limit drift. Returns dL/dx0 and
// dL/dtheta (flat, in the field's canonical parameter order). Memory use is
// independent of the number of solver steps.
func SolveAdjoint(f dynamo.VJPField, sol []*mat.Dense, times []float64, grads []*mat.Dense, opts Options) (*mat.Dense, []float64, error) {
	opts = opts.withDefaults()
	if len(sol) != len(times) || len(grads) != len(times) {
		return nil, nil, fmt.Errorf("adjoint: %d solutions, %d times, %d gradients", len(sol), len(times), len(grads))
	}
	if err := checkMonotonic(times); err != nil {
		return nil, nil, err
	}

	batch, dim := sol[0].Dims()
	bd := batch * dim
	nparams := f.NumParams()
	n := len(times)

	// Augmented flat state [z | a | g].
	y := make([]float64, 2*bd+nparams)
	copyInto(y[:bd], sol[n-1])
	copyInto(y[bd:2*bd], grads[n-1])

	fd := adjointDeriv(f, batch, dim, bd, nparams)
	normLen := len(y)
	if opts.Seminorm {
		normLen = 2 * bd
	}

	var fixed rk4
	adaptive := newDopri5()
	scratch := make([]float64, len(y))
	k := make([]float64, len(y))

	for i := n - 1; i >= 1; i-- {
		t0, t1 := times[i], times[i-1]
		switch opts.Method {
		case dynamo.Euler:
			eulerStep(fd, t0, t1-t0, y, scratch, k)
			copy(y, scratch)
		case dynamo.RK4:
			fixed.step(fd, t0, t1-t0, y, scratch)
			copy(y, scratch)
		case dynamo.Dopri5:
			if err := adaptive.integrate(fd, y, t0, t1, opts.Tol, opts.MinStep, normLen); err != nil {
				if se, ok := err.(*dynamo.SolveError); ok {
					se.Segment = i
				}
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("%w: %v", dynamo.ErrUnknownMethod, opts.Method)
		}

		// Re-pin the state to the forward solution and inject the loss
		// gradient observed at this query time.
		copyInto(y[:bd], sol[i-1])
		addInto(y[bd:2*bd], grads[i-1])
	}

	dx0 := mat.NewDense(batch, dim, append([]float64(nil), y[bd:2*bd]...))
	dtheta := append([]float64(nil), y[2*bd:]...)
	if !dynamo.IsFinite(dx0) {
		return nil, nil, &dynamo.SolveError{Time: times[0], Wrapped: dynamo.ErrUnstable}
	}
	return dx0, dtheta, nil
}

func adjointDeriv(f dynamo.VJPField, batch, dim, bd, nparams int) deriv {
	return func(t float64, y, dy []float64) {
		z := mat.NewDense(batch, dim, y[:bd])
		a := mat.NewDense(batch, dim, y[bd:2*bd])

		dz := f.Derive(t, z)
		copy(dy[:bd], dz.RawMatrix().Data)

		ga, gtheta := f.VJP(t, z, a)
		raw := ga.RawMatrix().Data
		for i := 0; i < bd; i++ {
			dy[bd+i] = -raw[i]
		}
		for i := 0; i < nparams; i++ {
			dy[2*bd+i] = -gtheta[i]
		}
	}
}

func copyInto(dst []float64, m *mat.Dense) {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		copy(dst, raw.Data)
		return
	}
	idx := 0
	for i := 0; i < raw.Rows; i++ {
		for j := 0; j < raw.Cols; j++ {
			dst[idx] = m.At(i, j)
			idx++
		}
	}
}

func addInto(dst []float64, m *mat.Dense) {
	raw := m.RawMatrix()
	idx := 0
	for i := 0; i < raw.Rows; i++ {
		for j := 0; j < raw.Cols; j++ {
			dst[idx] += m.At(i, j)
			idx++
		}
	}
}
