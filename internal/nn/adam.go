package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam optimizer with optional decoupled weight decay.
// Moment buffers are keyed by parameter name so a model can be rebuilt and
// keep stepping as long as names are stable.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64

	t        int
	momentum map[string]*mat.Dense
	velocity map[string]*mat.Dense
}

func NewAdam(lr, weightDecay float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  weightDecay,
		momentum:     make(map[string]*mat.Dense),
		velocity:     make(map[string]*mat.Dense),
	}
}

// Step applies one update to every parameter from its accumulated gradient.
func (o *Adam) Step(params []*Param) {
	o.t++
	bc1 := 1 - math.Pow(o.Beta1, float64(o.t))
	bc2 := 1 - math.Pow(o.Beta2, float64(o.t))

	for _, p := range params {
		r, c := p.Value.Dims()
		m, ok := o.momentum[p.Name]
		if !ok {
			m = mat.NewDense(r, c, nil)
			o.momentum[p.Name] = m
			o.velocity[p.Name] = mat.NewDense(r, c, nil)
		}
		v := o.velocity[p.Name]

		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				g := p.Grad.At(i, j)
				if o.WeightDecay > 0 {
					g += o.WeightDecay * p.Value.At(i, j)
				}
				mij := o.Beta1*m.At(i, j) + (1-o.Beta1)*g
				vij := o.Beta2*v.At(i, j) + (1-o.Beta2)*g*g
				m.Set(i, j, mij)
				v.Set(i, j, vij)

				mhat := mij / bc1
				vhat := vij / bc2
				p.Value.Set(i, j, p.Value.At(i, j)-o.LearningRate*mhat/(math.Sqrt(vhat)+o.Epsilon))
			}
		}
	}
}

// ClipGradNorm rescales all gradients so their global L2 norm is at most max.
func ClipGradNorm(params []*Param, max float64) {
	if max <= 0 {
		return
	}
	total := 0.0
	for _, p := range params {
		r, c := p.Grad.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				g := p.Grad.At(i, j)
				total += g * g
			}
		}
	}
	norm := math.Sqrt(total)
	if norm <= max {
		return
	}
	scale := max / norm
	for _, p := range params {
		p.Grad.Scale(scale, p.Grad)
	}
}
