package experiment

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/models"
	"github.com/san-kum/nodecast/internal/nn"
)

// TrainOptions tunes the epoch loop.
type TrainOptions struct {
	Epochs   int
	Patience int
	// ClipNorm rescales gradients above this norm; 0 disables clipping.
	ClipNorm float64
	// ValidateEvery runs validation every n epochs (default 1).
	ValidateEvery int
	// OnEpoch, when set, receives every validated epoch (live monitors).
	OnEpoch func(model string, epoch int, trainLoss, valLoss float64, nfe int)
}

// TrainResult carries the per-epoch curves and the best validation score.
type TrainResult struct {
	TrainLosses []float64
	ValLosses   []float64
	NFEs        []float64
	BestVal     float64
	BestEpoch   int
}

// TrainAndTest runs the epoch loop: shuffled training batches, an Adam step
// per batch, per-epoch NFE accounting and validation, early stopping after
// patience epochs without improvement. The parameters are left at the best
// validation snapshot, not the last epoch's.
func TrainAndTest(log *logrus.Logger, sys models.System, dltrain, dlval *dataset.Loader, opt *nn.Adam, topt TrainOptions) (*TrainResult, error) {
	validateEvery := topt.ValidateEvery
	if validateEvery <= 0 {
		validateEvery = 1
	}

	res := &TrainResult{BestVal: math.Inf(1)}
	params := sys.Params()
	var best []*mat.Dense
	waited := 0

	for epoch := 0; epoch < topt.Epochs; epoch++ {
		sum := 0.0
		batches := dltrain.Epoch()
		for _, b := range batches {
			nn.ZeroGrads(params)
			loss, err := sys.TrainingStep(b)
			if err != nil {
				return nil, err
			}
			if topt.ClipNorm > 0 {
				nn.ClipGradNorm(params, topt.ClipNorm)
			}
			opt.Step(params)
			sum += loss
		}
		trainLoss := sum / float64(len(batches))
		nfe := sys.TakeNFE()
		res.TrainLosses = append(res.TrainLosses, trainLoss)
		res.NFEs = append(res.NFEs, float64(nfe))

		if (epoch+1)%validateEvery != 0 {
			continue
		}
		valLoss, _, err := sys.ValidationStep(dlval)
		if err != nil {
			return nil, err
		}
		res.ValLosses = append(res.ValLosses, valLoss)

		log.WithFields(logrus.Fields{
			"model":      sys.Name(),
			"epoch":      epoch,
			"train_loss": trainLoss,
			"val_loss":   valLoss,
			"nfe":        nfe,
		}).Info("epoch")
		if topt.OnEpoch != nil {
			topt.OnEpoch(sys.Name(), epoch, trainLoss, valLoss, nfe)
		}

		if valLoss < res.BestVal {
			res.BestVal = valLoss
			res.BestEpoch = epoch
			best = snapshot(params)
			waited = 0
		} else {
			waited++
			if waited > topt.Patience {
				log.WithFields(logrus.Fields{
					"model": sys.Name(),
					"epoch": epoch,
					"best":  res.BestVal,
				}).Info("early stop")
				break
			}
		}
	}

	restore(params, best)
	return res, nil
}

func snapshot(params []*nn.Param) []*mat.Dense {
	out := make([]*mat.Dense, len(params))
	for i, p := range params {
		out[i] = mat.DenseCopyOf(p.Value)
	}
	return out
}

func restore(params []*nn.Param, snap []*mat.Dense) {
	if snap == nil {
		return
	}
	for i, p := range params {
		p.Value.Copy(snap[i])
	}
}
