package dataset

import "math"

// Mode tags a batch with the forecasting task it serves.
type Mode int

const (
	Extrap Mode = iota
	Interp
)

func (m Mode) String() string {
	if m == Interp {
		return "interp"
	}
	return "extrap"
}

// Batch is one collated loader step. AvailableForecasts is nil when the
// dataset carries no exogenous channels or no aligned steps survive the NaN
// filter.
type Batch struct {
	ObservedData       *Trajectories
	DataToPredict      *Trajectories
	AvailableForecasts *Trajectories
	ObservedTP         []float64
	TPToPredict        []float64
	Mode               Mode
}

// Collate stacks the given samples of w into a batch. Exogenous forecasts at
// unaligned resolutions carry NaN placeholders; collate keeps only the time
// steps every channel of every sample has.
func Collate(w *Windowed, idx []int, mode Mode) Batch {
	b := Batch{
		ObservedData:  w.ObservedData.Select(idx),
		DataToPredict: w.DataToPredict.Select(idx),
		ObservedTP:    w.ObservedTP,
		TPToPredict:   w.TPToPredict,
		Mode:          mode,
	}
	if w.AvailableForecasts != nil {
		b.AvailableForecasts = filterNaNSteps(w.AvailableForecasts.Select(idx))
	}
	return b
}

func filterNaNSteps(trajs *Trajectories) *Trajectories {
	keep := make([]int, 0, trajs.T)
	for t := 0; t < trajs.T; t++ {
		ok := true
		for i := 0; i < trajs.N && ok; i++ {
			for j := 0; j < trajs.D; j++ {
				if math.IsNaN(trajs.At(i, t, j)) {
					ok = false
					break
				}
			}
		}
		if ok {
			keep = append(keep, t)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	out := NewTrajectories(trajs.N, len(keep), trajs.D)
	for i := 0; i < trajs.N; i++ {
		for k, t := range keep {
			for j := 0; j < trajs.D; j++ {
				out.Set(i, k, j, trajs.At(i, t, j))
			}
		}
	}
	return out
}
