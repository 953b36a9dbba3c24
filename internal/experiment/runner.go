package experiment

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/nodecast/internal/dataset"
	"github.com/san-kum/nodecast/internal/metrics"
	"github.com/san-kum/nodecast/internal/nn"
	"github.com/san-kum/nodecast/internal/store"
)

// Run is a complete multi-seed experiment.
type Run struct {
	Name        string
	Dataset     string
	DatasetOpts dataset.Options
	Specs       []ModelSpec

	Seed     int64
	RunTimes int

	LearningRate float64
	WeightDecay  float64
	Train        TrainOptions

	Store *store.Store
	Log   *logrus.Logger
}

// Summary aggregates the headline score across seeds.
type Summary struct {
	// RMSE holds the per-seed test scores keyed by model label.
	RMSE map[string][]float64
}

// MeanStd returns the score statistics for one model label.
func (s *Summary) MeanStd(label string) (float64, float64) {
	scores := s.RMSE[label]
	if len(scores) == 0 {
		return 0, 0
	}
	return stat.Mean(scores, nil), stat.StdDev(scores, nil)
}

// Labels returns the model labels sorted by name.
func (s *Summary) Labels() []string {
	out := make([]string, 0, len(s.RMSE))
	for k := range s.RMSE {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RunAll trains every spec for every seed. Each seed regenerates the data,
// pre-flushes its checkpoint, and flushes again after each model. A model
// failure is logged with its model and seed, aborts that seed's remaining
// models and surfaces in the returned error; finished checkpoints survive.
func RunAll(r *Run) (*Summary, error) {
	if r.RunTimes <= 0 {
		r.RunTimes = 1
	}
	summary := &Summary{RMSE: map[string][]float64{}}
	var failures []error

	for seed := r.Seed; seed < r.Seed+int64(r.RunTimes); seed++ {
		opts := r.DatasetOpts
		opts.Seed = seed
		data, err := dataset.Generate(r.Dataset, opts)
		if err != nil {
			return nil, err
		}

		cp := &store.Checkpoint{
			Dataset:      r.Dataset,
			Seed:         seed,
			Trajectories: opts.TrajectoriesToSample,
			Extrapolate:  opts.Extrap,
			Normalized:   opts.Normalize,
			InputDim:     data.InputDim,
			OutputDim:    data.OutputDim,
			TrainMean:    data.Norm.Mean,
			TrainStd:     data.Norm.Std,
			Models:       map[string]store.ModelResult{},
		}
		if err := r.Store.Flush(r.Name, cp); err != nil {
			return nil, err
		}

		for _, spec := range r.Specs {
			label := spec.Label()
			log := r.Log.WithFields(logrus.Fields{"model": label, "seed": seed})
			log.Info("training and testing")

			rmse, result, err := r.runOne(spec, data, seed)
			if err != nil {
				log.WithError(err).Error("model failed")
				failures = append(failures, fmt.Errorf("%s seed %d: %w", label, seed, err))
				break
			}
			log.WithField("test_rmse", rmse).Info("result")

			summary.RMSE[label] = append(summary.RMSE[label], rmse)
			cp.Models[label] = *result
			if err := r.Store.Flush(r.Name, cp); err != nil {
				return nil, err
			}
		}
	}

	for _, label := range summary.Labels() {
		mean, std := summary.MeanStd(label)
		r.Log.WithFields(logrus.Fields{
			"model": label,
			"mean":  mean,
			"std":   std,
		}).Info("test RMSE over seeds")
	}
	return summary, errors.Join(failures...)
}

func (r *Run) runOne(spec ModelSpec, data *dataset.Data, seed int64) (float64, *store.ModelResult, error) {
	sys, err := spec.Build(data, rand.New(rand.NewSource(seed)))
	if err != nil {
		return 0, nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"model":      spec.Label(),
		"num_params": nn.NumParams(sys.Params()),
	}).Info("built")

	result := &store.ModelResult{Name: spec.Label(), Seed: seed}
	if len(sys.Params()) > 0 {
		opt := nn.NewAdam(r.LearningRate, r.WeightDecay)
		tr, err := TrainAndTest(r.Log, sys, data.Train, data.Val, opt, r.Train)
		if err != nil {
			return 0, nil, err
		}
		result.TrainLosses = tr.TrainLosses
		result.ValLosses = tr.ValLosses
		result.TrainNFEs = tr.NFEs
	}

	valPreds, valTrajs, err := sys.Predict(data.Val)
	if err != nil {
		return 0, nil, err
	}
	testPreds, testTrajs, err := sys.Predict(data.Test)
	if err != nil {
		return 0, nil, err
	}

	// Score against the tail of the reference trajectory so extrapolation
	// references, which include the observed window, line up.
	tail := testTrajs.TimeSlice(testTrajs.T-testPreds.T, testTrajs.T)
	rmse := metrics.RMSE(testPreds, tail)

	result.TestRMSE = rmse
	result.Params = store.ParamsMap(sys.Params())
	result.ValPreds = store.TensorOf(valPreds)
	result.ValTrajs = store.TensorOf(valTrajs)
	result.TestPreds = store.TensorOf(testPreds)
	result.TestTrajs = store.TensorOf(testTrajs)
	return rmse, result, nil
}
