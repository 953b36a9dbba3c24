package field

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dynamo"
)

func newTestFunc(t *testing.T, timeDep bool) (*OdeFunc, *dynamo.Counter) {
	t.Helper()
	nfe := &dynamo.Counter{}
	f := NewOdeFunc(Config{Dim: 2, Hidden: 8, TimeDependent: timeDep}, nfe, rand.New(rand.NewSource(42)))
	return f, nfe
}

func TestDeriveShapeAndNFE(t *testing.T) {
	f, nfe := newTestFunc(t, true)
	z := mat.NewDense(3, 2, []float64{0.1, -0.2, 0.3, 0.4, -0.5, 0.6})

	dz := f.Derive(0.5, z)
	r, c := dz.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("derivative dims = (%d,%d), want (3,2)", r, c)
	}
	if nfe.Value() != 1 {
		t.Errorf("NFE after one Derive = %d, want 1", nfe.Value())
	}

	f.Derive(0.6, z)
	f.Derive(0.7, z)
	if nfe.Value() != 3 {
		t.Errorf("NFE after three Derives = %d, want 3 (counter must not self-reset)", nfe.Value())
	}
	if got := nfe.ReadAndReset(); got != 3 {
		t.Errorf("ReadAndReset = %d, want 3", got)
	}
	if nfe.Value() != 0 {
		t.Errorf("NFE after reset = %d, want 0", nfe.Value())
	}
}

func TestTimeDependenceChangesOutput(t *testing.T) {
	f, _ := newTestFunc(t, true)
	z := mat.NewDense(1, 2, []float64{0.3, -0.7})

	a := f.Derive(0.0, z)
	b := f.Derive(5.0, z)
	if mat.EqualApprox(a, b, 1e-12) {
		t.Error("time-dependent field should vary with t")
	}

	g, _ := newTestFunc(t, false)
	a = g.Derive(0.0, z)
	b = g.Derive(5.0, z)
	if !mat.EqualApprox(a, b, 1e-15) {
		t.Error("autonomous field must not vary with t")
	}
}

func TestVJPMatchesFiniteDifferenceState(t *testing.T) {
	for _, timeDep := range []bool{false, true} {
		f, _ := newTestFunc(t, timeDep)
		z := mat.NewDense(1, 2, []float64{0.2, -0.4})
		adj := mat.NewDense(1, 2, []float64{1.0, -0.5})

		dz, _ := f.VJP(0.3, z, adj)

		const eps = 1e-6
		for j := 0; j < 2; j++ {
			z0 := z.At(0, j)
			z.Set(0, j, z0+eps)
			up := f.Derive(0.3, z)
			z.Set(0, j, z0-eps)
			down := f.Derive(0.3, z)
			z.Set(0, j, z0)

			numeric := 0.0
			for k := 0; k < 2; k++ {
				numeric += adj.At(0, k) * (up.At(0, k) - down.At(0, k)) / (2 * eps)
			}
			if math.Abs(numeric-dz.At(0, j)) > 1e-6 {
				t.Errorf("timeDep=%v dz[%d]: numeric %g, analytic %g", timeDep, j, numeric, dz.At(0, j))
			}
		}
	}
}

func TestVJPMatchesFiniteDifferenceParams(t *testing.T) {
	f, _ := newTestFunc(t, true)
	z := mat.NewDense(2, 2, []float64{0.2, -0.4, 0.1, 0.9})
	adj := mat.NewDense(2, 2, []float64{1.0, -0.5, 0.3, 0.7})

	_, dtheta := f.VJP(0.3, z, adj)
	if len(dtheta) != f.NumParams() {
		t.Fatalf("dtheta length = %d, want %d", len(dtheta), f.NumParams())
	}

	// Spot-check a few scattered parameter indices.
	params := f.Params()
	scalar := func() float64 {
		out := f.Derive(0.3, z)
		s := 0.0
		for i := 0; i < 2; i++ {
			for k := 0; k < 2; k++ {
				s += adj.At(i, k) * out.At(i, k)
			}
		}
		return s
	}

	const eps = 1e-6
	flatIdx := 0
	for _, p := range params {
		r, c := p.Value.Dims()
		// first entry of each parameter tensor
		v0 := p.Value.At(0, 0)
		p.Value.Set(0, 0, v0+eps)
		up := scalar()
		p.Value.Set(0, 0, v0-eps)
		down := scalar()
		p.Value.Set(0, 0, v0)

		numeric := (up - down) / (2 * eps)
		if math.Abs(numeric-dtheta[flatIdx]) > 1e-5 {
			t.Errorf("param %s grad: numeric %g, analytic %g", p.Name, numeric, dtheta[flatIdx])
		}
		flatIdx += r * c
	}
}

func TestAccumulateGrad(t *testing.T) {
	f, _ := newTestFunc(t, false)
	flat := make([]float64, f.NumParams())
	for i := range flat {
		flat[i] = 1
	}
	f.AccumulateGrad(flat)
	f.AccumulateGrad(flat)
	for _, p := range f.Params() {
		if got := p.Grad.At(0, 0); got != 2 {
			t.Errorf("%s grad = %f, want 2", p.Name, got)
		}
	}
}
