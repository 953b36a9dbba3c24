package models

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/nn"
)

// sineBatch builds a small extrapolation batch from the toy signal.
func sineBatch(n, obsT, predT int) dataset.Batch {
	obs := dataset.NewTrajectories(n, obsT, 1)
	pred := dataset.NewTrajectories(n, predT, 1)
	obsTP := make([]float64, obsT)
	predTP := make([]float64, predT)
	for t := 0; t < obsT; t++ {
		obsTP[t] = 0.1 * float64(t)
	}
	for t := 0; t < predT; t++ {
		predTP[t] = 0.1 * float64(obsT+t)
	}
	for i := 0; i < n; i++ {
		phase := 0.3 * float64(i)
		for t := 0; t < obsT; t++ {
			obs.Set(i, t, 0, math.Sin(obsTP[t]+phase))
		}
		for t := 0; t < predT; t++ {
			pred.Set(i, t, 0, math.Sin(predTP[t]+phase))
		}
	}
	return dataset.Batch{
		ObservedData:  obs,
		DataToPredict: pred,
		ObservedTP:    obsTP,
		TPToPredict:   predTP,
		Mode:          dataset.Extrap,
	}
}

func loaderOf(b dataset.Batch) *dataset.Loader {
	w := dataset.NewWindowed(
		concatTime(b.ObservedData, b.DataToPredict),
		append(append([]float64{}, b.ObservedTP...), b.TPToPredict...),
		b.ObservedData.T, 1,
		dataset.FeatureRoles{Hist: []int{0}, Fcst: []int{0}},
	)
	return dataset.NewLoader(w, b.ObservedData.N, dataset.Extrap, nil)
}

func TestNODESeedSelection(t *testing.T) {
	b := sineBatch(2, 5, 3)

	interp := NewNODE(NODEConfig{ObsDim: 1, Hidden: 8, Method: dynamo.Euler}, rand.New(rand.NewSource(1)))
	if got := interp.seed(b.ObservedData).At(0, 0); got != b.ObservedData.At(0, 0, 0) {
		t.Errorf("interpolation seed = %v, want first observed %v", got, b.ObservedData.At(0, 0, 0))
	}

	extrap := NewNODE(NODEConfig{ObsDim: 1, Hidden: 8, Method: dynamo.Euler, Extrap: true}, rand.New(rand.NewSource(1)))
	if got := extrap.seed(b.ObservedData).At(0, 0); got != b.ObservedData.At(0, 4, 0) {
		t.Errorf("extrapolation seed = %v, want last observed %v", got, b.ObservedData.At(0, 4, 0))
	}
}

func TestNODEForwardShapeAndBoundary(t *testing.T) {
	b := sineBatch(3, 5, 4)
	m := NewNODE(NODEConfig{ObsDim: 1, Hidden: 8, Method: dynamo.RK4, Extrap: true}, rand.New(rand.NewSource(2)))

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	if pred.N != 3 || pred.T != 4 || pred.D != 1 {
		t.Fatalf("prediction shape = (%d, %d, %d), want (3, 4, 1)", pred.N, pred.T, pred.D)
	}
	// The first forecast step is the seed state itself.
	if got, want := pred.At(1, 0, 0), b.ObservedData.At(1, 4, 0); got != want {
		t.Errorf("forecast at seed time = %v, want %v", got, want)
	}
}

func TestNODEZeroAugmentationMatchesPlain(t *testing.T) {
	b := sineBatch(2, 4, 3)
	a := NewNODE(NODEConfig{ObsDim: 1, Hidden: 8, Method: dynamo.Euler, AugmentDim: 0, Extrap: true}, rand.New(rand.NewSource(3)))
	p, err := a.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	// With no augmentation the seed is the raw observed state.
	if got := a.seed(b.ObservedData); got.RawMatrix().Cols != 1 {
		t.Fatalf("aug 0 seed width = %d, want 1", got.RawMatrix().Cols)
	}
	if p.D != 1 {
		t.Fatalf("aug 0 output width = %d, want 1", p.D)
	}
}

func TestNODEAugmentedShapes(t *testing.T) {
	b := sineBatch(2, 4, 3)
	m := NewNODE(NODEConfig{ObsDim: 1, Hidden: 8, AugmentDim: 2, Method: dynamo.Euler, Extrap: true}, rand.New(rand.NewSource(4)))

	seed := m.seed(b.ObservedData)
	if _, c := seed.Dims(); c != 3 {
		t.Fatalf("augmented seed width = %d, want 3", c)
	}
	// Augmented channels start at zero.
	if seed.At(0, 1) != 0 || seed.At(0, 2) != 0 {
		t.Error("augmentation channels should start at zero")
	}
	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	if pred.D != 1 {
		t.Fatalf("trimmed output width = %d, want 1", pred.D)
	}
}

func TestNODETrainingReducesLoss(t *testing.T) {
	b := sineBatch(4, 6, 4)
	m := NewNODE(NODEConfig{ObsDim: 1, Hidden: 16, Method: dynamo.Euler, Extrap: true}, rand.New(rand.NewSource(5)))
	opt := nn.NewAdam(1e-2, 0)

	first, err := m.TrainingStep(b)
	if err != nil {
		t.Fatal(err)
	}
	loss := first
	for i := 0; i < 60; i++ {
		nn.ZeroGrads(m.Params())
		loss, err = m.TrainingStep(b)
		if err != nil {
			t.Fatal(err)
		}
		opt.Step(m.Params())
	}
	if loss >= first {
		t.Errorf("training did not reduce loss: %v -> %v", first, loss)
	}
	if m.TakeNFE() == 0 {
		t.Error("training should spend function evaluations")
	}
	if m.TakeNFE() != 0 {
		t.Error("TakeNFE should reset the counter")
	}
}

func TestLatentNODEShapesAndGrads(t *testing.T) {
	b := sineBatch(3, 5, 4)
	m := NewLatentNODE(LatentNODEConfig{
		ObsDim: 1, Hidden: 8, LatentDim: 1, Method: dynamo.Euler, Extrap: true,
	}, rand.New(rand.NewSource(6)))

	enc := m.encode(b.ObservedData)
	if r, c := enc.Dims(); r != 3 || c != 1 {
		t.Fatalf("encoding shape = (%d, %d), want (3, 1)", r, c)
	}

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	if pred.N != 3 || pred.T != 4 || pred.D != 1 {
		t.Fatalf("prediction shape = (%d, %d, %d), want (3, 4, 1)", pred.N, pred.T, pred.D)
	}

	nn.ZeroGrads(m.Params())
	if _, err := m.TrainingStep(b); err != nil {
		t.Fatal(err)
	}
	nonzero := 0
	for _, p := range m.Params() {
		r, c := p.Grad.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if p.Grad.At(i, j) != 0 {
					nonzero++
				}
			}
		}
	}
	if nonzero == 0 {
		t.Error("training step should reach encoder and field gradients")
	}
}

func TestLSTMNetForwardAndTraining(t *testing.T) {
	b := sineBatch(3, 6, 4)
	m := NewLSTMNet(1, 8, 1, 4, rand.New(rand.NewSource(7)))

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	if pred.N != 3 || pred.T != 4 || pred.D != 1 {
		t.Fatalf("prediction shape = (%d, %d, %d), want (3, 4, 1)", pred.N, pred.T, pred.D)
	}

	opt := nn.NewAdam(1e-2, 0)
	first, _ := m.TrainingStep(b)
	loss := first
	for i := 0; i < 80; i++ {
		nn.ZeroGrads(m.Params())
		loss, err = m.TrainingStep(b)
		if err != nil {
			t.Fatal(err)
		}
		opt.Step(m.Params())
	}
	if loss >= first {
		t.Errorf("lstm training did not reduce loss: %v -> %v", first, loss)
	}
}

func TestMLPNetForwardAndTraining(t *testing.T) {
	b := sineBatch(3, 6, 4)
	m := NewMLPNet(1, 6, 4, 16, 1, rand.New(rand.NewSource(8)))

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	if pred.N != 3 || pred.T != 4 || pred.D != 1 {
		t.Fatalf("prediction shape = (%d, %d, %d), want (3, 4, 1)", pred.N, pred.T, pred.D)
	}

	opt := nn.NewAdam(1e-2, 0)
	first, _ := m.TrainingStep(b)
	loss := first
	for i := 0; i < 80; i++ {
		nn.ZeroGrads(m.Params())
		loss, err = m.TrainingStep(b)
		if err != nil {
			t.Fatal(err)
		}
		opt.Step(m.Params())
	}
	if loss >= first {
		t.Errorf("mlp training did not reduce loss: %v -> %v", first, loss)
	}
}

func TestPersistenceNaiveRepeatsLast(t *testing.T) {
	b := sineBatch(2, 5, 3)
	m := NewPersistence(Naive, 3)

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		last := b.ObservedData.At(i, 4, 0)
		for ti := 0; ti < 3; ti++ {
			if pred.At(i, ti, 0) != last {
				t.Fatalf("naive persistence at (%d, %d) = %v, want %v", i, ti, pred.At(i, ti, 0), last)
			}
		}
	}
}

func TestPersistenceLoopReplaysWindow(t *testing.T) {
	b := sineBatch(1, 5, 3)
	m := NewPersistence(Loop, 3)

	pred, err := m.forward(b)
	if err != nil {
		t.Fatal(err)
	}
	for ti := 0; ti < 3; ti++ {
		want := b.ObservedData.At(0, 2+ti, 0)
		if pred.At(0, ti, 0) != want {
			t.Fatalf("loop persistence at %d = %v, want %v", ti, pred.At(0, ti, 0), want)
		}
	}
}

func TestPersistenceLoopRejectsLongHorizon(t *testing.T) {
	b := sineBatch(1, 5, 3)

	if _, err := NewPersistence(Loop, 8).forward(b); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := NewPersistence(Naive, 8).forward(b); err != nil {
		t.Errorf("naive persistence should accept any horizon: %v", err)
	}
}

func TestParsePersistenceKind(t *testing.T) {
	if k, err := ParsePersistenceKind("naive"); err != nil || k != Naive {
		t.Error("naive should parse")
	}
	if k, err := ParsePersistenceKind("loop"); err != nil || k != Loop {
		t.Error("loop should parse")
	}
	if _, err := ParsePersistenceKind("oracle"); !errors.Is(err, dynamo.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestPredictConcatenatesObservedInExtrap(t *testing.T) {
	b := sineBatch(2, 5, 3)
	l := loaderOf(b)
	m := NewPersistence(Naive, 3)

	preds, trajs, err := m.Predict(l)
	if err != nil {
		t.Fatal(err)
	}
	if preds.T != 3 {
		t.Fatalf("prediction steps = %d, want 3", preds.T)
	}
	if trajs.T != 8 {
		t.Fatalf("reference steps = %d, want observed+target = 8", trajs.T)
	}
}
