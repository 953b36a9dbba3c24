package dataset

import "path/filepath"

// Options configures dataset generation. The zero value plus a dataset name
// is usable; fields follow the benchmark defaults.
type Options struct {
	// BatchSize per loader batch (default 128).
	BatchSize int
	// Extrap forecasts a held-out suffix; otherwise interpolation mode,
	// which also enables the missing-at-random mask.
	Extrap bool
	// TrajectoriesToSample for synthetic generators (default 100).
	TrajectoriesToSample int
	// PercentMissing zeroes this fraction of entries at random (interp only).
	PercentMissing float64
	// Normalize standardizes channels with train-split statistics.
	Normalize bool
	// OutOfDistribution splits chronologically instead of by random
	// permutation, so the test set is future data.
	OutOfDistribution bool
	// NoiseStd adds zero-mean Gaussian noise when positive.
	NoiseStd float64
	// NumPi sets the sine time horizon in multiples of pi (default 4).
	NumPi int
	// ObserveSteps splits each trajectory into observed prefix and
	// forecast suffix.
	ObserveSteps int
	// Seed drives the mask, noise, permutation and shuffle draws.
	Seed int64
	// AvgTerms block-averages data and time grids when > 1.
	AvgTerms int
	// WindowWidth rows per CSV trajectory (default 576).
	WindowWidth int
	// WindowStride rows between CSV trajectory starts (default 12).
	WindowStride int
	// ExternalFeature keeps the exogenous forecast channels; otherwise
	// they are dropped.
	ExternalFeature bool
	// DataDir holds the CSV source files.
	DataDir string
}

func (o Options) csvPath(filename string) string {
	dir := o.DataDir
	if dir == "" {
		dir = "datasets"
	}
	return filepath.Join(dir, filename)
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return 128
	}
	return o.BatchSize
}

func (o Options) trajectories() int {
	if o.TrajectoriesToSample <= 0 {
		return 100
	}
	return o.TrajectoriesToSample
}
