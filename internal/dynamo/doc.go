// Package dynamo provides core primitives for learned continuous-time
// dynamics.
//
// The package defines the fundamental interfaces and types shared by the
// vector field, the numerical solvers and the training harness:
//
//   - [Field]: batched vector field (dZ/dt = f(t, Z))
//   - [VJPField]: field with vector-Jacobian products for adjoint gradients
//   - [Counter]: explicit function-evaluation (NFE) counter
//   - [Method]: solver method selection
//
// # Example
//
//	nfe := &dynamo.Counter{}
//	f := field.NewOdeFunc(field.Config{ObsDim: 1, Hidden: 50}, nfe, rng)
//	sol, _ := integrators.Solve(f, x0, times, integrators.Options{Method: dynamo.RK4})
//	calls := nfe.ReadAndReset()
//
// # Thread Safety
//
// Fields and solvers are NOT thread-safe; training is sequential. Counter is
// atomic only so that a read-and-reset observes every increment.
package dynamo
