package models

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/nn"
)

// MLPNet is the feedforward baseline: the observed window flattened through
// linear-sigmoid-linear into the whole forecast.
type MLPNet struct {
	fc1  *nn.Linear
	sig  *nn.Sigmoid
	head *nn.Linear
	outT int
	outD int
}

func NewMLPNet(obsDim, inTimesteps, outTimesteps, hidden, outDim int, rng *rand.Rand) *MLPNet {
	return &MLPNet{
		fc1:  nn.NewLinear("mlp.fc1", obsDim*inTimesteps, hidden, rng),
		sig:  &nn.Sigmoid{},
		head: nn.NewLinear("mlp.linear_out", hidden, outDim*outTimesteps, rng),
		outT: outTimesteps,
		outD: outDim,
	}
}

func (m *MLPNet) Name() string { return "mlp" }

func (m *MLPNet) forward(b dataset.Batch) (*dataset.Trajectories, error) {
	h := m.sig.Forward(m.fc1.Forward(flattenTraj(b.ObservedData)))
	return unflatten(m.head.Forward(h), m.outT, m.outD), nil
}

func (m *MLPNet) TrainingStep(b dataset.Batch) (float64, error) {
	pred, err := m.forward(b)
	if err != nil {
		return 0, err
	}
	loss := batchMSE(pred, b.DataToPredict)
	dh := m.head.Backward(flattenTraj(mseGrad(pred, b.DataToPredict)))
	m.fc1.Backward(m.sig.Backward(dh))
	return loss, nil
}

func (m *MLPNet) ValidationStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *MLPNet) TestStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *MLPNet) Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error) {
	return predictOver(l, m.forward)
}

func (m *MLPNet) Encode(l *dataset.Loader) (*mat.Dense, error) {
	var out *mat.Dense
	for _, b := range l.Epoch() {
		out = stackRows(out, m.sig.Forward(m.fc1.Forward(flattenTraj(b.ObservedData))))
	}
	return out, nil
}

func (m *MLPNet) Params() []*nn.Param {
	return append(m.fc1.Params(), m.head.Params()...)
}

func (m *MLPNet) TakeNFE() int { return 0 }
