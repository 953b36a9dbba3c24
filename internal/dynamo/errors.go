package dynamo

import "errors"

// Domain errors for integration and model construction.
var (
	// ErrUnknownDataset indicates a dataset name with no registered generator.
	ErrUnknownDataset = errors.New("dynamo: unknown dataset")

	// ErrUnknownMethod indicates an unrecognized solver or baseline variant.
	ErrUnknownMethod = errors.New("dynamo: unknown method")

	// ErrNonMonotonicTime indicates query times that are not strictly monotonic.
	ErrNonMonotonicTime = errors.New("dynamo: query times must be strictly monotonic")

	// ErrUnstable indicates the integration produced NaN or Inf state values.
	ErrUnstable = errors.New("dynamo: integration unstable (state diverged)")

	// ErrStepTooSmall indicates the adaptive timestep collapsed below minimum.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/field dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and field")
)

// SolveError wraps an error with the integration context it occurred in.
type SolveError struct {
	Time    float64
	Segment int
	Wrapped error
}

func (e *SolveError) Error() string {
	return e.Wrapped.Error()
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
