package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/nn"
)

// PersistenceKind selects the trivial forecaster variant.
type PersistenceKind int

const (
	// Naive repeats the last observed value across the whole horizon.
	Naive PersistenceKind = iota
	// Loop replays the last out_timesteps of the observed window.
	Loop
)

func ParsePersistenceKind(s string) (PersistenceKind, error) {
	switch s {
	case "naive":
		return Naive, nil
	case "loop":
		return Loop, nil
	default:
		return 0, fmt.Errorf("persistence kind %q: %w", s, dynamo.ErrUnknownMethod)
	}
}

func (k PersistenceKind) String() string {
	if k == Loop {
		return "loop"
	}
	return "naive"
}

// Persistence is the no-parameter reference every learned model has to beat.
type Persistence struct {
	kind PersistenceKind
	outT int
}

func NewPersistence(kind PersistenceKind, outTimesteps int) *Persistence {
	return &Persistence{kind: kind, outT: outTimesteps}
}

func (m *Persistence) Name() string { return "persistence_" + m.kind.String() }

func (m *Persistence) forward(b dataset.Batch) (*dataset.Trajectories, error) {
	obs := b.ObservedData
	if m.kind == Loop && m.outT > obs.T {
		return nil, fmt.Errorf("loop persistence: horizon %d exceeds observed window %d: %w",
			m.outT, obs.T, dynamo.ErrDimensionMismatch)
	}
	out := dataset.NewTrajectories(obs.N, m.outT, obs.D)
	for i := 0; i < obs.N; i++ {
		for t := 0; t < m.outT; t++ {
			src := obs.T - 1
			if m.kind == Loop {
				src = obs.T - m.outT + t
			}
			for j := 0; j < obs.D; j++ {
				out.Set(i, t, j, obs.At(i, src, j))
			}
		}
	}
	return out, nil
}

func (m *Persistence) TrainingStep(b dataset.Batch) (float64, error) {
	pred, err := m.forward(b)
	if err != nil {
		return 0, err
	}
	return batchMSE(pred, b.DataToPredict), nil
}

func (m *Persistence) ValidationStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *Persistence) TestStep(l *dataset.Loader) (float64, float64, error) {
	mse, err := lossOver(l, m.forward)
	return mse, mse, err
}

func (m *Persistence) Predict(l *dataset.Loader) (*dataset.Trajectories, *dataset.Trajectories, error) {
	return predictOver(l, m.forward)
}

func (m *Persistence) Encode(l *dataset.Loader) (*mat.Dense, error) {
	var out *mat.Dense
	for _, b := range l.Epoch() {
		out = stackRows(out, b.ObservedData.Step(b.ObservedData.T-1))
	}
	return out, nil
}

func (m *Persistence) Params() []*nn.Param { return nil }

func (m *Persistence) TakeNFE() int { return 0 }
