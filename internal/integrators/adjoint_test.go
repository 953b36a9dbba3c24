package integrators

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/field"
)

// sumLoss is the sum of every solution entry after the seed time.
func sumLoss(sol []*mat.Dense) float64 {
	s := 0.0
	for i := 1; i < len(sol); i++ {
		s += mat.Sum(sol[i])
	}
	return s
}

func onesGrads(sol []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(sol))
	for i, z := range sol {
		b, d := z.Dims()
		g := mat.NewDense(b, d, nil)
		if i > 0 {
			for r := 0; r < b; r++ {
				for c := 0; c < d; c++ {
					g.Set(r, c, 1)
				}
			}
		}
		out[i] = g
	}
	return out
}

func TestSolveAdjointMatchesFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nfe := &dynamo.Counter{}
	f := field.NewOdeFunc(field.Config{Dim: 2, Hidden: 8, TimeDependent: true}, nfe, rng)

	x0 := mat.NewDense(2, 2, []float64{0.3, -0.1, -0.4, 0.2})
	times := []float64{0, 0.4, 0.8}
	opts := Options{Method: dynamo.Dopri5, Tol: 1e-9}

	solve := func() float64 {
		sol, err := Solve(f, x0, times, opts)
		if err != nil {
			t.Fatal(err)
		}
		return sumLoss(sol)
	}

	sol, err := Solve(f, x0, times, opts)
	if err != nil {
		t.Fatal(err)
	}
	dx0, dtheta, err := SolveAdjoint(f, sol, times, onesGrads(sol), opts)
	if err != nil {
		t.Fatal(err)
	}

	const eps = 1e-5
	check := func(name string, analytic float64, perturb func(float64)) {
		perturb(eps)
		up := solve()
		perturb(-2 * eps)
		down := solve()
		perturb(eps)
		fd := (up - down) / (2 * eps)
		if math.Abs(fd-analytic) > 5e-4*(1+math.Abs(fd)) {
			t.Errorf("%s: adjoint %.6f, finite difference %.6f", name, analytic, fd)
		}
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			i, j := i, j
			check("x0", dx0.At(i, j), func(d float64) { x0.Set(i, j, x0.At(i, j)+d) })
		}
	}

	// First entry of each parameter tensor, at its offset in the flat layout.
	offset := 0
	for _, p := range f.Params() {
		p := p
		check(p.Name, dtheta[offset], func(d float64) { p.Value.Set(0, 0, p.Value.At(0, 0)+d) })
		offset += p.Size()
	}
}

func TestSolveAdjointZeroGradsGiveZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	f := field.NewOdeFunc(field.Config{Dim: 1, Hidden: 4}, &dynamo.Counter{}, rng)

	x0 := mat.NewDense(1, 1, []float64{0.5})
	times := []float64{0, 0.5}
	opts := Options{Method: dynamo.RK4}

	sol, err := Solve(f, x0, times, opts)
	if err != nil {
		t.Fatal(err)
	}
	grads := []*mat.Dense{mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil)}
	dx0, dtheta, err := SolveAdjoint(f, sol, times, grads, opts)
	if err != nil {
		t.Fatal(err)
	}
	if dx0.At(0, 0) != 0 {
		t.Errorf("zero loss gradient should give zero seed gradient, got %v", dx0.At(0, 0))
	}
	for i, g := range dtheta {
		if g != 0 {
			t.Errorf("dtheta[%d] = %v, want 0", i, g)
		}
	}
}
