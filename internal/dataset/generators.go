package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/san-kum/nodecast/internal/dynamo"
)

// FeatureRoles maps raw channels to their pipeline role: observed history,
// forecast target, and optionally exogenous forecasts available at predict
// time.
type FeatureRoles struct {
	Hist      []int
	Fcst      []int
	AvailFcst []int
}

// Raw is a generator's output before splitting and windowing: the full
// trajectory tensor, a shared time grid, and the angular sample rate.
type Raw struct {
	Trajs      *Trajectories
	Times      []float64
	SampleRate float64
	Roles      FeatureRoles
}

// Generator produces a raw trajectory set from the benchmark options.
type Generator func(opts Options) (*Raw, error)

var generators = map[string]Generator{
	"sine":  Sine,
	"mfred": mfredCSV,
	"nrel":  nrelCSV,
}

// Names lists the registered dataset names, unordered.
func Names() []string {
	out := make([]string, 0, len(generators))
	for name := range generators {
		out = append(out, name)
	}
	return out
}

func lookup(name string) (Generator, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, dynamo.ErrUnknownDataset)
	}
	return gen, nil
}

// Sine samples the three-harmonic toy signal
// y = sin(t+x0) + sin(2(t+x0)) + 0.5 sin(12(t+x0)) on a grid of numPi*pi,
// one phase offset per trajectory spread over [0, 16pi].
func Sine(opts Options) (*Raw, error) {
	n := opts.trajectories()
	numPi := opts.NumPi
	if numPi == 0 {
		numPi = 4
	}

	const tSamplesRef = 1000
	tSamples := tSamplesRef / 4 * numPi
	tEnd := float64(numPi) * math.Pi
	tBegin := tEnd / float64(tSamples)
	ti := linspace(tBegin, tEnd, tSamples)

	phases := linspace(0, 16*math.Pi, n)
	trajs := NewTrajectories(n, tSamples, 1)
	for i, x0 := range phases {
		for t, tv := range ti {
			v := math.Sin(tv+x0) + math.Sin(2*(tv+x0)) + 0.5*math.Sin(12*(tv+x0))
			trajs.Set(i, t, 0, v)
		}
	}

	sampleRate := float64(tSamples) / (ti[tSamples-1] - ti[0]) * 2 * math.Pi
	return &Raw{
		Trajs:      trajs,
		Times:      ti,
		SampleRate: sampleRate,
		Roles:      FeatureRoles{Hist: []int{0}, Fcst: []int{0}},
	}, nil
}

func mfredCSV(opts Options) (*Raw, error) {
	roles := FeatureRoles{Hist: []int{0}, Fcst: []int{0}, AvailFcst: []int{1}}
	return slidingWindowCSV(opts, "MFRED_wiztemp.csv", roles)
}

func nrelCSV(opts Options) (*Raw, error) {
	roles := FeatureRoles{Hist: []int{0}, Fcst: []int{0}, AvailFcst: []int{1, 2}}
	return slidingWindowCSV(opts, "nrel_all.csv", roles)
}

// slidingWindowCSV cuts a long multivariate CSV record into overlapping
// trajectories of windowWidth rows, starts spaced windowStride rows apart.
// The first column is a timestamp index and is skipped; empty cells become
// NaN.
func slidingWindowCSV(opts Options, filename string, roles FeatureRoles) (*Raw, error) {
	width := opts.WindowWidth
	if width == 0 {
		width = 24 * 12 * 2
	}
	stride := opts.WindowStride
	if stride == 0 {
		stride = 12
	}

	rows, err := readCSV(opts.csvPath(filename))
	if err != nil {
		return nil, err
	}
	if len(rows) < width {
		return nil, fmt.Errorf("dataset %s: %d rows, window needs %d", filename, len(rows), width)
	}

	dim := len(rows[0])
	n := (len(rows)-width)/stride + 1
	trajs := NewTrajectories(n, width, dim)
	for i := 0; i < n; i++ {
		for t := 0; t < width; t++ {
			for j := 0; j < dim; j++ {
				trajs.Set(i, t, j, rows[i*stride+t][j])
			}
		}
	}

	ti := make([]float64, width)
	for t := range ti {
		ti[t] = float64(t)
	}
	sampleRate := float64(width) / (ti[width-1] - ti[0])
	return &Raw{Trajs: trajs, Times: ti, SampleRate: sampleRate, Roles: roles}, nil
}

func readCSV(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s: no data rows", path)
	}

	// Header row and leading timestamp column are dropped.
	out := make([][]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]float64, len(rec)-1)
		for j, cell := range rec[1:] {
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", path, err)
			}
			row[j] = v
		}
		out = append(out, row)
	}
	return out, nil
}
