package models

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/field"
	"github.com/san-kum/nodecast/internal/integrators"
	"github.com/san-kum/nodecast/internal/nn"
)

// NODEConfig sizes a neural ODE forecaster. AugmentDim appends zero channels
// to the seed state so the field evolves in a higher-dimensional space.
type NODEConfig struct {
	ObsDim     int
	Hidden     int
	AugmentDim int
	Method     dynamo.Method
	Tol        float64
	// Extrap seeds from the last observed step and forecasts forward;
	// otherwise the first observed step seeds an interpolation.
	Extrap bool
}

// NODE integrates a learned vector field from an observed seed state and
// reads the forecast off the leading observation channels.
type NODE struct {
	cfg NODEConfig
	fn  *field.OdeFunc
	nfe *dynamo.Counter
}

func NewNODE(cfg NODEConfig, rng *rand.Rand) *NODE {
	nfe := &dynamo.Counter{}
	fn := field.NewOdeFunc(field.Config{
		Dim:           cfg.ObsDim + cfg.AugmentDim,
		Hidden:        cfg.Hidden,
		TimeDependent: true,
	}, nfe, rng)
	return &NODE{cfg: cfg, fn: fn, nfe: nfe}
}

func (m *NODE) Name() string { return "node" }

func (m *NODE) options() integrators.Options {
	return integrators.Options{Method: m.cfg.Method, Tol: m.cfg.Tol, Seminorm: true}
}

// seed picks the last observed step in extrapolation mode, the first
// otherwise, and appends the zero augmentation channels.
func (m *NODE) seed(obs *dataset.Trajectories) *mat.Dense {
	step := 0
	if m.cfg.Extrap {
		step = obs.T - 1
	}
	x0 := obs.Step(step)
	if m.cfg.AugmentDim == 0 {
		return x0
	}
	aug := mat.NewDense(obs.N, obs.D+m.cfg.AugmentDim, nil)
	for i := 0; i < obs.N; i++ {
		for j := 0; j < obs.D; j++ {
			aug.Set(i, j, x0.At(i, j))
		}
	}
	return aug
}

func (m *NODE) solve(b dataset.Batch) ([]*mat.Dense, error) {
	return integrators.Solve(m.fn, m.seed(b.ObservedData), b.TPToPredict, m.options())
}

func (m *NODE) forward(b dataset.Batch) (*dataset.Trajectories, error) {
	sol, err := m.solve(b)
	if err != nil {
		return nil, err
	}
	return solToTrajs(sol, m.cfg.ObsDim, false), nil
}

func (m *NODE) TrainingStep(b dataset.Batch) (float64, error) {
	sol, err := m.solve(b)
	if err != nil {
		return 0, err
	}
	pred := solToTrajs(sol, m.cfg.ObsDim, false)
	loss := batchMSE(pred, b.DataToPredict)

	grads := expandGrads(mseGrad(pred, b.DataToPredict), m.cfg.ObsDim+m.cfg.AugmentDim, false)
	_, dtheta, err := integrators.SolveAdjoint(m.fn, sol, b.TPToPredict, grads, m.options())
	if err != nil {
		return 0, err
	}
	m.fn.AccumulateGrad(dtheta)
	return loss, nil
}

func (m *NODE) ValidationStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *NODE) TestStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *NODE) Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error) {
	return predictOver(l, m.forward)
}

func (m *NODE) Encode(l *dataset.Loader) (*mat.Dense, error) {
	var out *mat.Dense
	for _, b := range l.Epoch() {
		out = stackRows(out, m.seed(b.ObservedData))
	}
	return out, nil
}

func (m *NODE) Params() []*nn.Param { return m.fn.Params() }

func (m *NODE) TakeNFE() int { return int(m.nfe.ReadAndReset()) }

// expandGrads scatters per-channel output gradients into the full solver
// state width, zero in the channels the trim dropped.
func expandGrads(g *dataset.Trajectories, dim int, trailing bool) []*mat.Dense {
	lo := 0
	if trailing {
		lo = dim - g.D
	}
	out := make([]*mat.Dense, g.T)
	for t := range out {
		m := mat.NewDense(g.N, dim, nil)
		for i := 0; i < g.N; i++ {
			for j := 0; j < g.D; j++ {
				m.Set(i, lo+j, g.At(i, t, j))
			}
		}
		out[t] = m
	}
	return out
}

func stackRows(acc, more *mat.Dense) *mat.Dense {
	if acc == nil {
		return mat.DenseCopyOf(more)
	}
	ar, c := acc.Dims()
	mr, _ := more.Dims()
	out := mat.NewDense(ar+mr, c, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, acc.At(i, j))
		}
	}
	for i := 0; i < mr; i++ {
		for j := 0; j < c; j++ {
			out.Set(ar+i, j, more.At(i, j))
		}
	}
	return out
}
