// Package store persists experiment results as JSON checkpoints, one file
// per run name and seed. Checkpoints are flushed before and after every
// model so a crashed run keeps its finished results.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/nn"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Tensor is a JSON-friendly (N, T, D) tensor.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func TensorOf(tr *dataset.Trajectories) Tensor {
	if tr == nil {
		return Tensor{}
	}
	data := make([]float64, len(tr.Raw()))
	copy(data, tr.Raw())
	return Tensor{Shape: []int{tr.N, tr.T, tr.D}, Data: data}
}

func (t Tensor) Trajectories() *dataset.Trajectories {
	if len(t.Shape) != 3 {
		return nil
	}
	tr := dataset.NewTrajectories(t.Shape[0], t.Shape[1], t.Shape[2])
	copy(tr.Raw(), t.Data)
	return tr
}

// ModelResult is everything saved per trained model.
type ModelResult struct {
	Name        string               `json:"name"`
	TestRMSE    float64              `json:"test_rmse"`
	Seed        int64                `json:"seed"`
	Params      map[string][]float64 `json:"params,omitempty"`
	TrainLosses []float64            `json:"train_losses"`
	ValLosses   []float64            `json:"val_losses"`
	TrainNFEs   []float64            `json:"train_nfes"`
	ValPreds    Tensor               `json:"val_preds"`
	ValTrajs    Tensor               `json:"val_trajs"`
	TestPreds   Tensor               `json:"test_preds"`
	TestTrajs   Tensor               `json:"test_trajs"`
}

// Checkpoint is one seed's results file.
type Checkpoint struct {
	Dataset      string                 `json:"dataset"`
	Seed         int64                  `json:"seed"`
	Trajectories int                    `json:"trajectories"`
	Extrapolate  bool                   `json:"extrapolate"`
	Normalized   bool                   `json:"normalized"`
	InputDim     int                    `json:"input_dim"`
	OutputDim    int                    `json:"output_dim"`
	TrainMean    []float64              `json:"train_mean"`
	TrainStd     []float64              `json:"train_std"`
	Models       map[string]ModelResult `json:"models"`
}

func (s *Store) Path(run string, seed int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s-%d.json", run, seed))
}

// Flush writes the checkpoint, replacing any earlier version.
func (s *Store) Flush(run string, cp *Checkpoint) error {
	f, err := os.Create(s.Path(run, cp.Seed))
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cp)
}

func (s *Store) Load(run string, seed int64) (*Checkpoint, error) {
	raw, err := os.ReadFile(s.Path(run, seed))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint %s-%d: %w", run, seed, err)
	}
	return &cp, nil
}

// List returns every checkpoint in the store directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// ParamsMap flattens named parameters row-major for checkpointing.
func ParamsMap(params []*nn.Param) map[string][]float64 {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string][]float64, len(params))
	for _, p := range params {
		r, c := p.Value.Dims()
		flat := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				flat = append(flat, p.Value.At(i, j))
			}
		}
		out[p.Name] = flat
	}
	return out
}
