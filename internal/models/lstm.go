package models

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/nn"
)

// LSTMNet is the recurrent baseline: a two-layer LSTM over the observed
// window, then a linear head from the final hidden state to the whole
// forecast, reshaped to (out_timesteps, out_dim).
type LSTMNet struct {
	lstm *nn.LSTM
	head *nn.Linear
	outT int
	outD int
}

func NewLSTMNet(obsDim, hidden, outDim, outTimesteps int, rng *rand.Rand) *LSTMNet {
	return &LSTMNet{
		lstm: nn.NewLSTM("lstm", obsDim, hidden, 2, rng),
		head: nn.NewLinear("lstm.linear_out", hidden, outDim*outTimesteps, rng),
		outT: outTimesteps,
		outD: outDim,
	}
}

func (m *LSTMNet) Name() string { return "lstm" }

func (m *LSTMNet) forward(b dataset.Batch) (*dataset.Trajectories, error) {
	h := m.lstm.Forward(seqOf(b.ObservedData))
	return unflatten(m.head.Forward(h), m.outT, m.outD), nil
}

func (m *LSTMNet) TrainingStep(b dataset.Batch) (float64, error) {
	pred, err := m.forward(b)
	if err != nil {
		return 0, err
	}
	loss := batchMSE(pred, b.DataToPredict)
	m.lstm.Backward(m.head.Backward(flattenTraj(mseGrad(pred, b.DataToPredict))))
	return loss, nil
}

func (m *LSTMNet) ValidationStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *LSTMNet) TestStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *LSTMNet) Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error) {
	return predictOver(l, m.forward)
}

func (m *LSTMNet) Encode(l *dataset.Loader) (*mat.Dense, error) {
	var out *mat.Dense
	for _, b := range l.Epoch() {
		out = stackRows(out, m.lstm.Forward(seqOf(b.ObservedData)))
	}
	return out, nil
}

func (m *LSTMNet) Params() []*nn.Param {
	return append(m.lstm.Params(), m.head.Params()...)
}

func (m *LSTMNet) TakeNFE() int { return 0 }
