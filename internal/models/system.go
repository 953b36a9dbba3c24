// Package models implements the forecasting systems the benchmark compares:
// neural ODEs trained through the adjoint pass, recurrent and feedforward
// baselines, and the persistence reference. Every model satisfies the same
// System contract so the harness treats them uniformly.
package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/nn"
)

// System is the contract the training harness drives.
type System interface {
	Name() string
	// TrainingStep runs one batch forward, accumulates parameter gradients
	// and returns the batch loss.
	TrainingStep(b dataset.Batch) (float64, error)
	// ValidationStep and TestStep return (loss, mse) without gradient work.
	ValidationStep(l *dataset.Loader) (float64, float64, error)
	TestStep(l *dataset.Loader) (float64, float64, error)
	// Predict returns predictions and reference trajectories: observed and
	// target concatenated in extrapolation mode, the target alone otherwise.
	Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error)
	// Encode returns the per-sample seed states.
	Encode(l *dataset.Loader) (*mat.Dense, error)
	Params() []*nn.Param
	// TakeNFE reads and resets the function-evaluation counter; zero for
	// models without a solver.
	TakeNFE() int
}

type forwardFn func(b dataset.Batch) (*dataset.Trajectories, error)

// batchMSE is the flattened mean squared error of one batch.
func batchMSE(pred, target *dataset.Trajectories) float64 {
	p, q := pred.Raw(), target.Raw()
	s := 0.0
	for i := range p {
		d := p[i] - q[i]
		s += d * d
	}
	return s / float64(len(p))
}

// lossOver averages the per-batch MSE over a full pass of the loader.
func lossOver(l *dataset.Loader, fwd forwardFn) (float64, error) {
	sum := 0.0
	batches := l.Epoch()
	for _, b := range batches {
		pred, err := fwd(b)
		if err != nil {
			return 0, err
		}
		sum += batchMSE(pred, b.DataToPredict)
	}
	return sum / float64(len(batches)), nil
}

// predictOver concatenates predictions and reference trajectories over the
// loader.
func predictOver(l *dataset.Loader, fwd forwardFn) (*dataset.Trajectories, *dataset.Trajectories, error) {
	var preds, trajs *dataset.Trajectories
	for _, b := range l.Epoch() {
		pred, err := fwd(b)
		if err != nil {
			return nil, nil, err
		}
		preds = appendTrajs(preds, pred)
		if b.Mode == dataset.Extrap {
			trajs = appendTrajs(trajs, concatTime(b.ObservedData, b.DataToPredict))
		} else {
			trajs = appendTrajs(trajs, b.DataToPredict)
		}
	}
	return preds, trajs, nil
}

func appendTrajs(acc, more *dataset.Trajectories) *dataset.Trajectories {
	if acc == nil {
		return more.Clone()
	}
	out := dataset.NewTrajectories(acc.N+more.N, acc.T, acc.D)
	copy(out.Raw(), acc.Raw())
	copy(out.Raw()[len(acc.Raw()):], more.Raw())
	return out
}

func concatTime(a, b *dataset.Trajectories) *dataset.Trajectories {
	out := dataset.NewTrajectories(a.N, a.T+b.T, a.D)
	for i := 0; i < a.N; i++ {
		for t := 0; t < a.T; t++ {
			for j := 0; j < a.D; j++ {
				out.Set(i, t, j, a.At(i, t, j))
			}
		}
		for t := 0; t < b.T; t++ {
			for j := 0; j < b.D; j++ {
				out.Set(i, a.T+t, j, b.At(i, t, j))
			}
		}
	}
	return out
}

// solToTrajs transposes a per-time list of (batch x dim) states into a
// (batch, times, width) tensor of the leading or trailing width channels.
func solToTrajs(sol []*mat.Dense, width int, trailing bool) *dataset.Trajectories {
	b, d := sol[0].Dims()
	lo := 0
	if trailing {
		lo = d - width
	}
	out := dataset.NewTrajectories(b, len(sol), width)
	for t, z := range sol {
		for i := 0; i < b; i++ {
			for j := 0; j < width; j++ {
				out.Set(i, t, j, z.At(i, lo+j))
			}
		}
	}
	return out
}

// seqOf views a trajectory tensor as a per-time list of (batch x dim)
// matrices for the recurrent layers.
func seqOf(tr *dataset.Trajectories) []*mat.Dense {
	out := make([]*mat.Dense, tr.T)
	for t := range out {
		out[t] = tr.Step(t)
	}
	return out
}

// flattenTraj reshapes (N, T, D) to (N, T*D).
func flattenTraj(tr *dataset.Trajectories) *mat.Dense {
	out := mat.NewDense(tr.N, tr.T*tr.D, nil)
	for i := 0; i < tr.N; i++ {
		for t := 0; t < tr.T; t++ {
			for j := 0; j < tr.D; j++ {
				out.Set(i, t*tr.D+j, tr.At(i, t, j))
			}
		}
	}
	return out
}

// unflatten reshapes (N, T*D) back to (N, T, D).
func unflatten(m *mat.Dense, steps, dim int) *dataset.Trajectories {
	n, _ := m.Dims()
	out := dataset.NewTrajectories(n, steps, dim)
	for i := 0; i < n; i++ {
		for t := 0; t < steps; t++ {
			for j := 0; j < dim; j++ {
				out.Set(i, t, j, m.At(i, t*dim+j))
			}
		}
	}
	return out
}

// mseGrad is dL/dpred for the flattened MSE loss, shaped like pred.
func mseGrad(pred, target *dataset.Trajectories) *dataset.Trajectories {
	out := dataset.NewTrajectories(pred.N, pred.T, pred.D)
	p, q, g := pred.Raw(), target.Raw(), out.Raw()
	scale := 2 / float64(len(p))
	for i := range p {
		g[i] = scale * (p[i] - q[i])
	}
	return out
}
