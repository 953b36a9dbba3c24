package dynamo

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// Field is a batched vector field dz/dt = f(t, z). The state z is a
// (batch x dim) matrix; Derive returns a matrix of the same shape.
type Field interface {
	Derive(t float64, z *mat.Dense) *mat.Dense
	Dim() int
}

// VJPField extends Field with reverse-mode products for the adjoint pass.
// VJP returns a^T df/dz for the adjoint batch a, plus a^T df/dtheta as a flat
// vector in the field's canonical parameter order. The parameter product is
// returned rather than accumulated because the adjoint solver integrates it
// as part of the augmented state.
type VJPField interface {
	Field
	NumParams() int
	VJP(t float64, z, adj *mat.Dense) (*mat.Dense, []float64)
}

// Counter tracks vector-field evaluations (NFE). It is handed explicitly to
// the field at construction; the harness reads and resets it at step
// boundaries. Atomic so a read-and-reset cannot lose increments.
type Counter struct {
	n int64
}

func (c *Counter) Inc() { atomic.AddInt64(&c.n, 1) }

func (c *Counter) Value() int { return int(atomic.LoadInt64(&c.n)) }

// ReadAndReset returns the current count and zeroes it in one step.
func (c *Counter) ReadAndReset() int { return int(atomic.SwapInt64(&c.n, 0)) }

// Method selects the numerical integration scheme.
type Method int

const (
	Euler Method = iota
	RK4
	Dopri5
)

func (m Method) String() string {
	switch m {
	case Euler:
		return "euler"
	case RK4:
		return "rk4"
	case Dopri5:
		return "dopri5"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod maps a solver name to its Method, failing on unknown names.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "euler":
		return Euler, nil
	case "rk4":
		return RK4, nil
	case "dopri5", "rk45":
		return Dopri5, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// IsFinite reports whether every entry of z is a real number.
func IsFinite(z *mat.Dense) bool {
	r, c := z.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := z.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
