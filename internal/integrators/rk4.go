package integrators

// rk4 holds scratch buffers reused across steps.
type rk4 struct {
	k1, k2, k3, k4 []float64
	scratch        []float64
}

func (r *rk4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

// step advances y by one classical Runge-Kutta step of size h into out.
func (r *rk4) step(f deriv, t, h float64, y, out []float64) {
	n := len(y)
	r.ensureScratch(n)

	f(t, y, r.k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k1[i]
	}
	f(t+h*0.5, r.scratch, r.k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k2[i]
	}
	f(t+h*0.5, r.scratch, r.k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*r.k3[i]
	}
	f(t+h, r.scratch, r.k4)

	h6 := h / 6.0
	for i := 0; i < n; i++ {
		out[i] = y[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
}
