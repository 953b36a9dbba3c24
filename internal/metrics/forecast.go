package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/nodecast/internal/dataset"
)

// MSE is the mean squared error over every element of the two tensors.
func MSE(pred, target *dataset.Trajectories) float64 {
	p, q := pred.Raw(), target.Raw()
	if len(p) == 0 {
		return 0
	}
	d := floats.Distance(p, q, 2)
	return d * d / float64(len(p))
}

// RMSE is the root of MSE, the benchmark's headline score.
func RMSE(pred, target *dataset.Trajectories) float64 {
	return math.Sqrt(MSE(pred, target))
}

// MAE is the mean absolute error over every element.
func MAE(pred, target *dataset.Trajectories) float64 {
	p, q := pred.Raw(), target.Raw()
	if len(p) == 0 {
		return 0
	}
	return floats.Distance(p, q, 1) / float64(len(p))
}
