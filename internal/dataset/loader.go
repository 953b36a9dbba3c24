package dataset

import "math/rand"

// Loader yields batches of a windowed dataset, one epoch at a time. Train
// loaders reshuffle sample order every epoch from their own seeded source;
// val and test loaders keep a fixed order.
type Loader struct {
	ds        *Windowed
	batchSize int
	mode      Mode
	rng       *rand.Rand
}

func NewLoader(ds *Windowed, batchSize int, mode Mode, rng *rand.Rand) *Loader {
	return &Loader{ds: ds, batchSize: batchSize, mode: mode, rng: rng}
}

// Len is the number of samples.
func (l *Loader) Len() int { return l.ds.Len() }

// NumBatches per epoch.
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Dataset exposes the underlying windowed tensors.
func (l *Loader) Dataset() *Windowed { return l.ds }

// Epoch collates one pass over the dataset.
func (l *Loader) Epoch() []Batch {
	n := l.ds.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if l.rng != nil {
		l.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	out := make([]Batch, 0, l.NumBatches())
	for lo := 0; lo < n; lo += l.batchSize {
		hi := lo + l.batchSize
		if hi > n {
			hi = n
		}
		out = append(out, Collate(l.ds, order[lo:hi], l.mode))
	}
	return out
}
