package integrators

import "github.com/san-kum/nodecast/internal/dynamo"

// Options configures a Solve or SolveAdjoint call.
type Options struct {
	Method dynamo.Method
	// Tol is the adaptive error tolerance (Dopri5 only).
	Tol float64
	// MinStep aborts adaptive integration when the step collapses below it.
	MinStep float64
	// Seminorm restricts the adjoint error norm to the state and adjoint
	// components, excluding the integrated parameter gradients.
	Seminorm bool
}

func (o Options) withDefaults() Options {
	if o.Tol <= 0 {
		o.Tol = 1e-6
	}
	if o.MinStep <= 0 {
		o.MinStep = 1e-10
	}
	return o
}

// deriv evaluates dy/dt at (t, y) into dy. States are flat row-major views
// of the (batch x dim) solver state.
type deriv func(t float64, y, dy []float64)
