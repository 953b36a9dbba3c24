package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/nodecast/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// dopri5 is the adaptive Dormand-Prince 4(5) integrator with the usual
// step-size controller.
type dopri5 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func newDopri5() *dopri5 {
	return &dopri5{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// integrate advances y in place from t0 to t1, choosing step sizes so the
// local error estimate stays under tol. normLen limits the error norm to the
// leading components (seminorm adjoint control); pass len(y) for the full
// norm. Steps may run in either time direction.
func (r *dopri5) integrate(f deriv, y []float64, t0, t1, tol, minStep float64, normLen int) error {
	n := len(y)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	k5 := make([]float64, n)
	k6 := make([]float64, n)
	k7 := make([]float64, n)
	xs := make([]float64, n)
	xNew := make([]float64, n)

	dir := 1.0
	if t1 < t0 {
		dir = -1.0
	}
	t := t0
	h := t1 - t0

	for dir*(t1-t) > 0 {
		if dir*(t+h-t1) > 0 {
			h = t1 - t
		}
		if math.Abs(h) < minStep {
			return &dynamo.SolveError{Time: t, Wrapped: dynamo.ErrStepTooSmall}
		}

		f(t, y, k1)

		for i := 0; i < n; i++ {
			xs[i] = y[i] + h*b21*k1[i]
		}
		f(t+a2*h, xs, k2)

		for i := 0; i < n; i++ {
			xs[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
		}
		f(t+a3*h, xs, k3)

		for i := 0; i < n; i++ {
			xs[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
		}
		f(t+a4*h, xs, k4)

		for i := 0; i < n; i++ {
			xs[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
		}
		f(t+a5*h, xs, k5)

		for i := 0; i < n; i++ {
			xs[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
		}
		f(t+h, xs, k6)

		for i := 0; i < n; i++ {
			xNew[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
		}
		f(t+h, xNew, k7)

		errMax := 0.0
		for i := 0; i < normLen; i++ {
			errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
			scale := math.Abs(y[i]) + math.Abs(h*k1[i]) + 1e-10
			errMax = math.Max(errMax, math.Abs(errEst)/scale)
		}
		if math.IsNaN(errMax) || math.IsInf(errMax, 0) {
			return &dynamo.SolveError{Time: t, Wrapped: fmt.Errorf("%w at t=%.6g", dynamo.ErrUnstable, t)}
		}

		errRatio := errMax / tol
		if errRatio > 1 {
			scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
			h *= scale
			continue
		}

		t += h
		copy(y, xNew)

		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			h *= scale
		} else {
			h *= r.maxScale
		}
	}

	return nil
}
