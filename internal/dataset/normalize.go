package dataset

import "math"

// Normalizer standardizes channels with per-channel mean and standard
// deviation. Statistics come from the train split only; NaN entries are
// excluded from the estimates and pass through Apply unchanged as NaN.
type Normalizer struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Identity is the disabled normalizer: mean 0 and std 1 for every channel.
func Identity(dim int) Normalizer {
	n := Normalizer{Mean: make([]float64, dim), Std: make([]float64, dim)}
	for j := range n.Std {
		n.Std[j] = 1
	}
	return n
}

// FitNormalizer estimates NaN-aware channel statistics from trajs.
func FitNormalizer(trajs *Trajectories) Normalizer {
	n := Normalizer{Mean: make([]float64, trajs.D), Std: make([]float64, trajs.D)}
	for j := 0; j < trajs.D; j++ {
		count := 0
		sum := 0.0
		for i := 0; i < trajs.N; i++ {
			for t := 0; t < trajs.T; t++ {
				v := trajs.At(i, t, j)
				if math.IsNaN(v) {
					continue
				}
				sum += v
				count++
			}
		}
		mean := sum / float64(count)
		ss := 0.0
		for i := 0; i < trajs.N; i++ {
			for t := 0; t < trajs.T; t++ {
				v := trajs.At(i, t, j)
				if math.IsNaN(v) {
					continue
				}
				d := v - mean
				ss += d * d
			}
		}
		n.Mean[j] = mean
		n.Std[j] = math.Sqrt(ss / float64(count))
	}
	return n
}

// Apply standardizes trajs in place.
func (n Normalizer) Apply(trajs *Trajectories) {
	for i := 0; i < trajs.N; i++ {
		for t := 0; t < trajs.T; t++ {
			for j := 0; j < trajs.D; j++ {
				trajs.Set(i, t, j, (trajs.At(i, t, j)-n.Mean[j])/n.Std[j])
			}
		}
	}
}

// Invert undoes Apply in place.
func (n Normalizer) Invert(trajs *Trajectories) {
	for i := 0; i < trajs.N; i++ {
		for t := 0; t < trajs.T; t++ {
			for j := 0; j < trajs.D; j++ {
				trajs.Set(i, t, j, trajs.At(i, t, j)*n.Std[j]+n.Mean[j])
			}
		}
	}
}
