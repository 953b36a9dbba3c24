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

// LatentNODEConfig sizes the encoder-seeded neural ODE.
type LatentNODEConfig struct {
	ObsDim     int
	Hidden     int
	LatentDim  int
	AugmentDim int
	Method     dynamo.Method
	Tol        float64
	Extrap     bool
}

// LatentNODE seeds the vector field from a learned encoding of the whole
// observed window instead of a single step: a two-layer GRU reads the
// window and a linear head projects its final hidden state to the latent
// seed. The forecast reads off the trailing channels of the solver state,
// the mirror of NODE's leading trim.
type LatentNODE struct {
	cfg     LatentNODEConfig
	fn      *field.OdeFunc
	gru     *nn.GRU
	project *nn.Linear
	nfe     *dynamo.Counter
}

func NewLatentNODE(cfg LatentNODEConfig, rng *rand.Rand) *LatentNODE {
	if cfg.LatentDim == 0 {
		cfg.LatentDim = 2
	}
	nfe := &dynamo.Counter{}
	fn := field.NewOdeFunc(field.Config{
		Dim:           cfg.LatentDim + cfg.AugmentDim,
		Hidden:        cfg.Hidden,
		TimeDependent: true,
	}, nfe, rng)
	return &LatentNODE{
		cfg:     cfg,
		fn:      fn,
		gru:     nn.NewGRU("encoder.gru", cfg.ObsDim, cfg.Hidden, 2, rng),
		project: nn.NewLinear("encoder.linear_out", cfg.Hidden, cfg.LatentDim, rng),
		nfe:     nfe,
	}
}

func (m *LatentNODE) Name() string { return "latent_node" }

func (m *LatentNODE) options() integrators.Options {
	return integrators.Options{Method: m.cfg.Method, Tol: m.cfg.Tol, Seminorm: true}
}

// encode runs the GRU over the observed window and projects the final
// hidden state, caching activations for the backward pass.
func (m *LatentNODE) encode(obs *dataset.Trajectories) *mat.Dense {
	h := m.gru.Forward(seqOf(obs))
	return m.project.Forward(h)
}

func (m *LatentNODE) seed(obs *dataset.Trajectories) *mat.Dense {
	x0 := m.encode(obs)
	if m.cfg.AugmentDim == 0 {
		return x0
	}
	aug := mat.NewDense(obs.N, m.cfg.LatentDim+m.cfg.AugmentDim, nil)
	for i := 0; i < obs.N; i++ {
		for j := 0; j < m.cfg.LatentDim; j++ {
			aug.Set(i, j, x0.At(i, j))
		}
	}
	return aug
}

func (m *LatentNODE) solve(b dataset.Batch) ([]*mat.Dense, error) {
	return integrators.Solve(m.fn, m.seed(b.ObservedData), b.TPToPredict, m.options())
}

func (m *LatentNODE) forward(b dataset.Batch) (*dataset.Trajectories, error) {
	sol, err := m.solve(b)
	if err != nil {
		return nil, err
	}
	return solToTrajs(sol, m.cfg.LatentDim, true), nil
}

func (m *LatentNODE) TrainingStep(b dataset.Batch) (float64, error) {
	sol, err := m.solve(b)
	if err != nil {
		return 0, err
	}
	pred := solToTrajs(sol, m.cfg.LatentDim, true)
	loss := batchMSE(pred, b.DataToPredict)

	dim := m.cfg.LatentDim + m.cfg.AugmentDim
	grads := expandGrads(mseGrad(pred, b.DataToPredict), dim, true)
	dx0, dtheta, err := integrators.SolveAdjoint(m.fn, sol, b.TPToPredict, grads, m.options())
	if err != nil {
		return 0, err
	}
	m.fn.AccumulateGrad(dtheta)

	// Only the latent part of the seed came from the encoder.
	dlatent := mat.NewDense(b.ObservedData.N, m.cfg.LatentDim, nil)
	for i := 0; i < b.ObservedData.N; i++ {
		for j := 0; j < m.cfg.LatentDim; j++ {
			dlatent.Set(i, j, dx0.At(i, j))
		}
	}
	m.gru.Backward(m.project.Backward(dlatent))
	return loss, nil
}

func (m *LatentNODE) ValidationStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *LatentNODE) TestStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *LatentNODE) Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error) {
	return predictOver(l, m.forward)
}

func (m *LatentNODE) Encode(l *dataset.Loader) (*mat.Dense, error) {
	var out *mat.Dense
	for _, b := range l.Epoch() {
		out = stackRows(out, m.encode(b.ObservedData))
	}
	return out, nil
}

func (m *LatentNODE) Params() []*nn.Param {
	var out []*nn.Param
	out = append(out, m.fn.Params()...)
	out = append(out, m.gru.Params()...)
	out = append(out, m.project.Params()...)
	return out
}

func (m *LatentNODE) TakeNFE() int { return int(m.nfe.ReadAndReset()) }
