package integrators

// eulerStep advances y by one explicit Euler step of size h, writing into out.
// k is scratch of the same length.
func eulerStep(f deriv, t, h float64, y, out, k []float64) {
	f(t, y, k)
	for i := range y {
		out[i] = y[i] + h*k[i]
	}
}
