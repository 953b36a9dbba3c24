// Package experiment drives the benchmark: it trains each forecasting
// system with early stopping, scores it on the held-out split and runs the
// whole comparison across seeds with incremental checkpoints.
package experiment

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/dynamo"
	"github.com/san-kum/nodecast/internal/models"
)

// ModelKind tags the forecasting system families.
type ModelKind int

const (
	KindNODE ModelKind = iota
	KindLatentNODE
	KindLSTM
	KindMLP
	KindPersistence
)

func ParseModelKind(s string) (ModelKind, error) {
	switch s {
	case "node":
		return KindNODE, nil
	case "latent_node":
		return KindLatentNODE, nil
	case "lstm":
		return KindLSTM, nil
	case "mlp":
		return KindMLP, nil
	case "persistence":
		return KindPersistence, nil
	default:
		return 0, fmt.Errorf("model %q: %w", s, dynamo.ErrUnknownMethod)
	}
}

func (k ModelKind) String() string {
	switch k {
	case KindLatentNODE:
		return "latent_node"
	case KindLSTM:
		return "lstm"
	case KindMLP:
		return "mlp"
	case KindPersistence:
		return "persistence"
	default:
		return "node"
	}
}

// ModelSpec describes one system to build per seed. A spec with AugmentDim
// set turns the plain NODE into its augmented variant.
type ModelSpec struct {
	Kind        ModelKind
	Hidden      int
	LatentDim   int
	AugmentDim  int
	Method      dynamo.Method
	Tol         float64
	Persistence models.PersistenceKind
}

// Label distinguishes variants of the same kind in results.
func (s ModelSpec) Label() string {
	switch s.Kind {
	case KindNODE:
		if s.AugmentDim > 0 {
			return fmt.Sprintf("anode_%s", s.Method)
		}
		return fmt.Sprintf("node_%s", s.Method)
	case KindLatentNODE:
		return fmt.Sprintf("latent_node_%s", s.Method)
	case KindPersistence:
		return "persistence_" + s.Persistence.String()
	default:
		return s.Kind.String()
	}
}

// Build constructs the system sized to the generated data.
func (s ModelSpec) Build(d *dataset.Data, rng *rand.Rand) (models.System, error) {
	extrap := d.Mode == dataset.Extrap
	switch s.Kind {
	case KindNODE:
		return models.NewNODE(models.NODEConfig{
			ObsDim:     d.InputDim,
			Hidden:     s.Hidden,
			AugmentDim: s.AugmentDim,
			Method:     s.Method,
			Tol:        s.Tol,
			Extrap:     extrap,
		}, rng), nil
	case KindLatentNODE:
		latent := s.LatentDim
		if latent == 0 {
			latent = d.OutputDim
		}
		return models.NewLatentNODE(models.LatentNODEConfig{
			ObsDim:     d.InputDim,
			Hidden:     s.Hidden,
			LatentDim:  latent,
			AugmentDim: s.AugmentDim,
			Method:     s.Method,
			Tol:        s.Tol,
			Extrap:     extrap,
		}, rng), nil
	case KindLSTM:
		return models.NewLSTMNet(d.InputDim, s.Hidden, d.OutputDim, d.OutputSteps, rng), nil
	case KindMLP:
		return models.NewMLPNet(d.InputDim, d.InputSteps, d.OutputSteps, s.Hidden, d.OutputDim, rng), nil
	case KindPersistence:
		return models.NewPersistence(s.Persistence, d.OutputSteps), nil
	default:
		return nil, fmt.Errorf("model kind %d: %w", s.Kind, dynamo.ErrUnknownMethod)
	}
}
