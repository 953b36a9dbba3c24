package dataset

import (
	"math/rand"
)

// Data is the assembled benchmark input: three loaders over a common
// normalization, plus the shapes the models size themselves from.
type Data struct {
	// InputDim is the observed history channel count; AvailDim counts the
	// exogenous forecast channels (0 when absent).
	InputDim  int
	AvailDim  int
	OutputDim int

	SampleRate float64
	Times      []float64

	Train *Loader
	Val   *Loader
	Test  *Loader

	// InputSteps and OutputSteps are the per-sample observed and forecast
	// lengths after pooling; AvailSteps counts exogenous steps surviving
	// the NaN filter.
	InputSteps  int
	AvailSteps  int
	OutputSteps int

	Norm  Normalizer
	Roles FeatureRoles
	Mode  Mode
}

// Generate builds the loaders for a named dataset. Unknown names fail
// immediately with ErrUnknownDataset.
func Generate(name string, opts Options) (*Data, error) {
	gen, err := lookup(name)
	if err != nil {
		return nil, err
	}
	raw, err := gen(opts)
	if err != nil {
		return nil, err
	}
	if !opts.ExternalFeature {
		raw.Roles.AvailFcst = nil
	}

	// Corruption draws (mask, noise) and ordering draws (split permutation,
	// train reshuffle) come from separate seeded sources, so enabling noise
	// or masking never changes which trajectory lands where.
	rng := rand.New(rand.NewSource(opts.Seed))
	orderRng := rand.New(rand.NewSource(opts.Seed + 1))
	trajs := raw.Trajs

	mode := Extrap
	if !opts.Extrap {
		mode = Interp
		applyMask(trajs, opts.PercentMissing, rng)
	}
	if opts.NoiseStd > 0 {
		for i, v := range trajs.data {
			trajs.data[i] = v + rng.NormFloat64()*opts.NoiseStd
		}
	}

	train, val, test := split(trajs, opts.OutOfDistribution, orderRng)

	norm := Identity(trajs.D)
	if opts.Normalize {
		norm = FitNormalizer(train)
		norm.Apply(train)
		norm.Apply(val)
		norm.Apply(test)
	}
	train = train.Select(orderRng.Perm(train.N))

	observe := opts.ObserveSteps
	if observe <= 0 || observe > trajs.T {
		observe = trajs.T / 2
	}
	avg := opts.AvgTerms
	wtrain := NewWindowed(train, raw.Times, observe, avg, raw.Roles)
	wval := NewWindowed(val, raw.Times, observe, avg, raw.Roles)
	wtest := NewWindowed(test, raw.Times, observe, avg, raw.Roles)

	bs := opts.batchSize()
	d := &Data{
		InputDim:    len(raw.Roles.Hist),
		AvailDim:    len(raw.Roles.AvailFcst),
		OutputDim:   len(raw.Roles.Fcst),
		SampleRate:  raw.SampleRate,
		Times:       raw.Times,
		Train:       NewLoader(wtrain, bs, mode, rand.New(rand.NewSource(opts.Seed+2))),
		Val:         NewLoader(wval, bs, mode, nil),
		Test:        NewLoader(wtest, bs, mode, nil),
		InputSteps:  wtrain.ObservedData.T,
		OutputSteps: wtrain.DataToPredict.T,
		Norm:        norm,
		Roles:       raw.Roles,
		Mode:        mode,
	}
	if wtrain.AvailableForecasts != nil {
		if b := Collate(wtrain, []int{0}, mode); b.AvailableForecasts != nil {
			d.AvailSteps = b.AvailableForecasts.T
		}
	}
	return d, nil
}

// applyMask zeroes each entry independently with probability percent.
func applyMask(trajs *Trajectories, percent float64, rng *rand.Rand) {
	if percent <= 0 {
		return
	}
	for i, v := range trajs.data {
		if rng.Float64() >= 1-percent {
			trajs.data[i] = 0
		} else {
			trajs.data[i] = v
		}
	}
}

// split cuts trajectories 0.8/0.1/0.1, chronologically when ood so the test
// set is strictly future data, otherwise by seeded permutation.
func split(trajs *Trajectories, ood bool, rng *rand.Rand) (train, val, test *Trajectories) {
	trainEnd := int(0.8 * float64(trajs.N))
	valEnd := int(0.9 * float64(trajs.N))
	if ood {
		return trajs.Range(0, trainEnd), trajs.Range(trainEnd, valEnd), trajs.Range(valEnd, trajs.N)
	}
	perm := rng.Perm(trajs.N)
	return trajs.Select(perm[:trainEnd]), trajs.Select(perm[trainEnd:valEnd]), trajs.Select(perm[valEnd:])
}
