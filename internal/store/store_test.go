package store

import (
	"testing"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/nn"
)

func TestFlushLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	preds := dataset.NewTrajectories(2, 3, 1)
	preds.Set(1, 2, 0, 0.75)

	cp := &Checkpoint{
		Dataset:      "sine",
		Seed:         7,
		Trajectories: 100,
		Extrapolate:  true,
		Normalized:   true,
		InputDim:     1,
		OutputDim:    1,
		TrainMean:    []float64{0.1},
		TrainStd:     []float64{1.2},
		Models: map[string]ModelResult{
			"node": {
				Name:        "node",
				TestRMSE:    0.5,
				Seed:        7,
				TrainLosses: []float64{1, 0.5, 0.25},
				TrainNFEs:   []float64{100, 100, 100},
				TestPreds:   TensorOf(preds),
			},
		},
	}

	if err := st.Flush("bench", cp); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	got, err := st.Load("bench", 7)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Dataset != "sine" || got.Seed != 7 {
		t.Errorf("metadata mismatch: %q seed %d", got.Dataset, got.Seed)
	}
	if got.Models["node"].TestRMSE != 0.5 {
		t.Errorf("test_rmse = %v, want 0.5", got.Models["node"].TestRMSE)
	}

	back := got.Models["node"].TestPreds.Trajectories()
	if back.N != 2 || back.T != 3 || back.D != 1 {
		t.Fatalf("tensor shape = (%d, %d, %d), want (2, 3, 1)", back.N, back.T, back.D)
	}
	if back.At(1, 2, 0) != 0.75 {
		t.Errorf("tensor value = %v, want 0.75", back.At(1, 2, 0))
	}
}

func TestFlushIsIncremental(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	cp := &Checkpoint{Dataset: "sine", Seed: 1, Models: map[string]ModelResult{}}
	if err := st.Flush("bench", cp); err != nil {
		t.Fatal(err)
	}

	cp.Models["lstm"] = ModelResult{Name: "lstm", TestRMSE: 0.9, Seed: 1}
	if err := st.Flush("bench", cp); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load("bench", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Models) != 1 {
		t.Fatalf("got %d models, want 1", len(got.Models))
	}

	names, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "bench-1.json" {
		t.Errorf("list = %v, want [bench-1.json]", names)
	}
}

func TestParamsMap(t *testing.T) {
	p := nn.NewParam("w", 2, 2)
	p.Value.Set(0, 1, 3)
	m := ParamsMap([]*nn.Param{p})
	if got := m["w"]; len(got) != 4 || got[1] != 3 {
		t.Errorf("flattened params = %v", got)
	}
	if ParamsMap(nil) != nil {
		t.Error("no params should map to nil")
	}
}
