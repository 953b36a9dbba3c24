// Package dataset builds the forecasting benchmark data: trajectory
// generators, chronological and shuffled splits, NaN-aware normalization,
// observation/forecast windowing with average pooling, and batch loaders.
package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Trajectories is an (N, T, D) tensor of N trajectories, T time steps and D
// channels, stored flat row-major.
type Trajectories struct {
	N, T, D int
	data    []float64
}

func NewTrajectories(n, t, d int) *Trajectories {
	return &Trajectories{N: n, T: t, D: d, data: make([]float64, n*t*d)}
}

func (tr *Trajectories) At(i, t, j int) float64 {
	return tr.data[(i*tr.T+t)*tr.D+j]
}

func (tr *Trajectories) Set(i, t, j int, v float64) {
	tr.data[(i*tr.T+t)*tr.D+j] = v
}

func (tr *Trajectories) Clone() *Trajectories {
	out := NewTrajectories(tr.N, tr.T, tr.D)
	copy(out.data, tr.data)
	return out
}

// Raw exposes the flat backing slice, laid out trajectory-major.
func (tr *Trajectories) Raw() []float64 { return tr.data }

// Range copies trajectories [lo, hi).
func (tr *Trajectories) Range(lo, hi int) *Trajectories {
	out := NewTrajectories(hi-lo, tr.T, tr.D)
	copy(out.data, tr.data[lo*tr.T*tr.D:hi*tr.T*tr.D])
	return out
}

// Select gathers the given trajectory indices, in order.
func (tr *Trajectories) Select(idx []int) *Trajectories {
	out := NewTrajectories(len(idx), tr.T, tr.D)
	stride := tr.T * tr.D
	for k, i := range idx {
		copy(out.data[k*stride:(k+1)*stride], tr.data[i*stride:(i+1)*stride])
	}
	return out
}

// Channels copies the given channel subset into a new tensor.
func (tr *Trajectories) Channels(chans []int) *Trajectories {
	out := NewTrajectories(tr.N, tr.T, len(chans))
	for i := 0; i < tr.N; i++ {
		for t := 0; t < tr.T; t++ {
			for k, j := range chans {
				out.Set(i, t, k, tr.At(i, t, j))
			}
		}
	}
	return out
}

// TimeSlice copies time steps [lo, hi).
func (tr *Trajectories) TimeSlice(lo, hi int) *Trajectories {
	out := NewTrajectories(tr.N, hi-lo, tr.D)
	for i := 0; i < tr.N; i++ {
		for t := lo; t < hi; t++ {
			for j := 0; j < tr.D; j++ {
				out.Set(i, t-lo, j, tr.At(i, t, j))
			}
		}
	}
	return out
}

// Step returns time step t as a (N, D) matrix view suitable for the solvers.
func (tr *Trajectories) Step(t int) *mat.Dense {
	out := mat.NewDense(tr.N, tr.D, nil)
	for i := 0; i < tr.N; i++ {
		for j := 0; j < tr.D; j++ {
			out.Set(i, j, tr.At(i, t, j))
		}
	}
	return out
}

// AvgPool block-averages the time axis with kernel and stride both equal to
// terms, dropping any trailing remainder.
func (tr *Trajectories) AvgPool(terms int) *Trajectories {
	if terms <= 1 {
		return tr
	}
	nt := tr.T / terms
	out := NewTrajectories(tr.N, nt, tr.D)
	for i := 0; i < tr.N; i++ {
		for t := 0; t < nt; t++ {
			for j := 0; j < tr.D; j++ {
				s := 0.0
				for k := 0; k < terms; k++ {
					s += tr.At(i, t*terms+k, j)
				}
				out.Set(i, t, j, s/float64(terms))
			}
		}
	}
	return out
}

// avgPool1d block-averages a time grid the same way AvgPool treats data.
func avgPool1d(ts []float64, terms int) []float64 {
	if terms <= 1 {
		return ts
	}
	nt := len(ts) / terms
	out := make([]float64, nt)
	for t := 0; t < nt; t++ {
		s := 0.0
		for k := 0; k < terms; k++ {
			s += ts[t*terms+k]
		}
		out[t] = s / float64(terms)
	}
	return out
}

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = a
		return out
	}
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	return out
}
