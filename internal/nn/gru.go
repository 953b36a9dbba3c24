package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// gruStep holds the per-timestep values needed for backprop through time.
type gruStep struct {
	x, h    *mat.Dense // input and incoming hidden state
	r, z, n *mat.Dense // gate activations
	hnLin   *mat.Dense // Whn h + bhn, reused for the reset-gate gradient
}

// GRULayer is a single gated recurrent unit layer over row batches.
// Gate equations follow the usual convention:
//
//	r = sigmoid(Wir x + bir + Whr h + bhr)
//	z = sigmoid(Wiz x + biz + Whz h + bhz)
//	n = tanh(Win x + bin + r (.) (Whn h + bhn))
//	h' = (1-z) (.) n + z (.) h
type GRULayer struct {
	In, Hidden int

	Wir, Wiz, Win *Param // Hidden x In
	Whr, Whz, Whn *Param // Hidden x Hidden
	Bir, Biz, Bin *Param // 1 x Hidden
	Bhr, Bhz, Bhn *Param

	steps []gruStep
}

func NewGRULayer(name string, in, hidden int, rng *rand.Rand) *GRULayer {
	l := &GRULayer{In: in, Hidden: hidden}
	mk := func(suffix string, r, c, fanIn, fanOut int) *Param {
		p := NewParam(fmt.Sprintf("%s.%s", name, suffix), r, c)
		XavierFill(p.Value, fanIn, fanOut, rng)
		return p
	}
	l.Wir = mk("weight_ir", hidden, in, in, hidden)
	l.Wiz = mk("weight_iz", hidden, in, in, hidden)
	l.Win = mk("weight_in", hidden, in, in, hidden)
	l.Whr = mk("weight_hr", hidden, hidden, hidden, hidden)
	l.Whz = mk("weight_hz", hidden, hidden, hidden, hidden)
	l.Whn = mk("weight_hn", hidden, hidden, hidden, hidden)
	l.Bir = NewParam(name+".bias_ir", 1, hidden)
	l.Biz = NewParam(name+".bias_iz", 1, hidden)
	l.Bin = NewParam(name+".bias_in", 1, hidden)
	l.Bhr = NewParam(name+".bias_hr", 1, hidden)
	l.Bhz = NewParam(name+".bias_hz", 1, hidden)
	l.Bhn = NewParam(name+".bias_hn", 1, hidden)
	return l
}

func (l *GRULayer) Params() []*Param {
	return []*Param{
		l.Wir, l.Wiz, l.Win, l.Whr, l.Whz, l.Whn,
		l.Bir, l.Biz, l.Bin, l.Bhr, l.Bhz, l.Bhn,
	}
}

func (l *GRULayer) resetCache() { l.steps = l.steps[:0] }

func (l *GRULayer) lin(x *mat.Dense, w, b *Param) *mat.Dense {
	batch, _ := x.Dims()
	y := mat.NewDense(batch, l.Hidden, nil)
	y.Mul(x, w.Value.T())
	addRow(y, b.Value)
	return y
}

// Step advances the layer one timestep, caching for Backward.
func (l *GRULayer) Step(x, h *mat.Dense) *mat.Dense {
	rPre := l.lin(x, l.Wir, l.Bir)
	rPre.Add(rPre, l.lin(h, l.Whr, l.Bhr))
	r := SigmoidOf(rPre)

	zPre := l.lin(x, l.Wiz, l.Biz)
	zPre.Add(zPre, l.lin(h, l.Whz, l.Bhz))
	z := SigmoidOf(zPre)

	hnLin := l.lin(h, l.Whn, l.Bhn)
	nPre := l.lin(x, l.Win, l.Bin)
	nPre.Add(nPre, mulElem(r, hnLin))
	n := TanhOf(nPre)

	hNew := zerosLike(h)
	batch, hid := h.Dims()
	for i := 0; i < batch; i++ {
		for j := 0; j < hid; j++ {
			hNew.Set(i, j, (1-z.At(i, j))*n.At(i, j)+z.At(i, j)*h.At(i, j))
		}
	}

	l.steps = append(l.steps, gruStep{x: x, h: h, r: r, z: z, n: n, hnLin: hnLin})
	return hNew
}

// stepBackward pops the most recent cached step, accumulates parameter
// gradients for it and returns (dx, dhPrev).
func (l *GRULayer) stepBackward(dh *mat.Dense) (*mat.Dense, *mat.Dense) {
	s := l.steps[len(l.steps)-1]
	l.steps = l.steps[:len(l.steps)-1]

	batch, hid := dh.Dims()
	dz := mat.NewDense(batch, hid, nil)
	dn := mat.NewDense(batch, hid, nil)
	dhPrev := mat.NewDense(batch, hid, nil)
	for i := 0; i < batch; i++ {
		for j := 0; j < hid; j++ {
			g := dh.At(i, j)
			dz.Set(i, j, g*(s.h.At(i, j)-s.n.At(i, j)))
			dn.Set(i, j, g*(1-s.z.At(i, j)))
			dhPrev.Set(i, j, g*s.z.At(i, j))
		}
	}

	dnPre := TanhBackward(s.n, dn)
	dr := mulElem(dnPre, s.hnLin)
	dHnLin := mulElem(dnPre, s.r)
	dzPre := SigmoidBackward(s.z, dz)
	drPre := SigmoidBackward(s.r, dr)

	accum := func(w, bi *Param, pre, in *mat.Dense) {
		var dw mat.Dense
		dw.Mul(pre.T(), in)
		w.Grad.Add(w.Grad, &dw)
		colSumInto(bi.Grad, pre)
	}
	accum(l.Win, l.Bin, dnPre, s.x)
	accum(l.Whn, l.Bhn, dHnLin, s.h)
	accum(l.Wiz, l.Biz, dzPre, s.x)
	accum(l.Whz, l.Bhz, dzPre, s.h)
	accum(l.Wir, l.Bir, drPre, s.x)
	accum(l.Whr, l.Bhr, drPre, s.h)

	dx := mat.NewDense(batch, l.In, nil)
	var tmp mat.Dense
	tmp.Mul(dnPre, l.Win.Value)
	dx.Add(dx, &tmp)
	tmp.Reset()
	tmp.Mul(dzPre, l.Wiz.Value)
	dx.Add(dx, &tmp)
	tmp.Reset()
	tmp.Mul(drPre, l.Wir.Value)
	dx.Add(dx, &tmp)

	tmp.Reset()
	tmp.Mul(dHnLin, l.Whn.Value)
	dhPrev.Add(dhPrev, &tmp)
	tmp.Reset()
	tmp.Mul(dzPre, l.Whz.Value)
	dhPrev.Add(dhPrev, &tmp)
	tmp.Reset()
	tmp.Mul(drPre, l.Whr.Value)
	dhPrev.Add(dhPrev, &tmp)

	return dx, dhPrev
}

// GRU stacks GRULayers over a time-major sequence of row batches. Forward
// returns the final hidden state of the top layer, the only output either
// consumer (the latent encoder) reads.
type GRU struct {
	Layers []*GRULayer

	seqLen int
}

func NewGRU(name string, in, hidden, numLayers int, rng *rand.Rand) *GRU {
	g := &GRU{Layers: make([]*GRULayer, numLayers)}
	for l := 0; l < numLayers; l++ {
		layerIn := in
		if l > 0 {
			layerIn = hidden
		}
		g.Layers[l] = NewGRULayer(fmt.Sprintf("%s.l%d", name, l), layerIn, hidden, rng)
	}
	return g
}

func (g *GRU) Params() []*Param {
	var out []*Param
	for _, l := range g.Layers {
		out = append(out, l.Params()...)
	}
	return out
}

// Forward consumes xs, one (batch x in) matrix per timestep.
func (g *GRU) Forward(xs []*mat.Dense) *mat.Dense {
	g.seqLen = len(xs)
	batch, _ := xs[0].Dims()

	seq := xs
	var h *mat.Dense
	for _, layer := range g.Layers {
		layer.resetCache()
		h = mat.NewDense(batch, layer.Hidden, nil)
		outs := make([]*mat.Dense, len(seq))
		for t, x := range seq {
			h = layer.Step(x, h)
			outs[t] = h
		}
		seq = outs
	}
	return h
}

// Backward runs truncated-free BPTT from the gradient of the final top-layer
// hidden state, accumulating parameter gradients.
func (g *GRU) Backward(dLast *mat.Dense) {
	batch, _ := dLast.Dims()
	T := g.seqLen

	// dOuts[t] is the gradient flowing into layer output at step t.
	dOuts := make([]*mat.Dense, T)
	for t := range dOuts {
		dOuts[t] = mat.NewDense(batch, g.Layers[len(g.Layers)-1].Hidden, nil)
	}
	dOuts[T-1].Add(dOuts[T-1], dLast)

	for li := len(g.Layers) - 1; li >= 0; li-- {
		layer := g.Layers[li]
		dh := mat.NewDense(batch, layer.Hidden, nil)
		dxs := make([]*mat.Dense, T)
		for t := T - 1; t >= 0; t-- {
			dh.Add(dh, dOuts[t])
			dx, dhPrev := layer.stepBackward(dh)
			dxs[t] = dx
			dh = dhPrev
		}
		dOuts = dxs
	}
}
