// Package integrators provides numerical ODE solvers over batched states:
// fixed-step explicit Euler and RK4 stepping exactly between query times,
// the adaptive Dormand-Prince method, and the adjoint gradient pass used to
// train neural vector fields with memory cost independent of step count.
package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dynamo"
)

// Solve integrates the field from x0 (batch x dim) through the query times
// and returns the state at every query time. The first output equals x0:
// times[0] is the seed time. Times must be strictly monotonic; decreasing
// sequences integrate backward.
func Solve(f dynamo.Field, x0 *mat.Dense, times []float64, opts Options) ([]*mat.Dense, error) {
	opts = opts.withDefaults()
	batch, dim := x0.Dims()
	if dim != f.Dim() {
		return nil, fmt.Errorf("%w: state dim %d, field dim %d", dynamo.ErrDimensionMismatch, dim, f.Dim())
	}
	if err := checkMonotonic(times); err != nil {
		return nil, err
	}

	y := flatten(x0)
	fd := fieldDeriv(f, batch, dim)

	out := make([]*mat.Dense, len(times))
	out[0] = cloneOf(x0)

	var fixed rk4
	adaptive := newDopri5()
	scratch := make([]float64, len(y))
	k := make([]float64, len(y))

	for i := 1; i < len(times); i++ {
		t0, t1 := times[i-1], times[i]
		switch opts.Method {
		case dynamo.Euler:
			eulerStep(fd, t0, t1-t0, y, scratch, k)
			copy(y, scratch)
		case dynamo.RK4:
			fixed.step(fd, t0, t1-t0, y, scratch)
			copy(y, scratch)
		case dynamo.Dopri5:
			if err := adaptive.integrate(fd, y, t0, t1, opts.Tol, opts.MinStep, len(y)); err != nil {
				if se, ok := err.(*dynamo.SolveError); ok {
					se.Segment = i
				}
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %v", dynamo.ErrUnknownMethod, opts.Method)
		}

		m := mat.NewDense(batch, dim, append([]float64(nil), y...))
		if !dynamo.IsFinite(m) {
			return nil, &dynamo.SolveError{Time: t1, Segment: i, Wrapped: dynamo.ErrUnstable}
		}
		out[i] = m
	}
	return out, nil
}

func checkMonotonic(times []float64) error {
	if len(times) < 1 {
		return fmt.Errorf("%w: empty time sequence", dynamo.ErrNonMonotonicTime)
	}
	if len(times) == 1 {
		return nil
	}
	increasing := times[1] > times[0]
	for i := 1; i < len(times); i++ {
		d := times[i] - times[i-1]
		if (increasing && d <= 0) || (!increasing && d >= 0) {
			return fmt.Errorf("%w: times[%d]=%g after times[%d]=%g", dynamo.ErrNonMonotonicTime, i, times[i], i-1, times[i-1])
		}
	}
	return nil
}

// fieldDeriv bridges the flat solver state to the field's batch matrices.
// mat.NewDense wraps the slice without copying, so no per-call allocation
// happens for the input view.
func fieldDeriv(f dynamo.Field, batch, dim int) deriv {
	return func(t float64, y, dy []float64) {
		z := mat.NewDense(batch, dim, y)
		dz := f.Derive(t, z)
		copy(dy, dz.RawMatrix().Data)
	}
}

func flatten(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return append([]float64(nil), raw.Data...)
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		for j := 0; j < raw.Cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func cloneOf(m *mat.Dense) *mat.Dense {
	out := &mat.Dense{}
	out.CloneFrom(m)
	return out
}
