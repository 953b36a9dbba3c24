package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

type lstmStep struct {
	x, h, c    *mat.Dense // input, incoming hidden, incoming cell
	i, f, g, o *mat.Dense // gate activations
	cNew       *mat.Dense
	tc         *mat.Dense // tanh(cNew)
}

// LSTMLayer is a single LSTM layer over row batches:
//
//	i = sigmoid(Wii x + bii + Whi h + bhi)
//	f = sigmoid(Wif x + bif + Whf h + bhf)
//	g = tanh(Wig x + big + Whg h + bhg)
//	o = sigmoid(Wio x + bio + Who h + bho)
//	c' = f (.) c + i (.) g
//	h' = o (.) tanh(c')
type LSTMLayer struct {
	In, Hidden int

	Wii, Wif, Wig, Wio *Param // Hidden x In
	Whi, Whf, Whg, Who *Param // Hidden x Hidden
	Bii, Bif, Big, Bio *Param // 1 x Hidden
	Bhi, Bhf, Bhg, Bho *Param

	steps []lstmStep
}

func NewLSTMLayer(name string, in, hidden int, rng *rand.Rand) *LSTMLayer {
	l := &LSTMLayer{In: in, Hidden: hidden}
	mkW := func(suffix string, cols int) *Param {
		p := NewParam(fmt.Sprintf("%s.%s", name, suffix), hidden, cols)
		XavierFill(p.Value, cols, hidden, rng)
		return p
	}
	l.Wii, l.Wif, l.Wig, l.Wio = mkW("weight_ii", in), mkW("weight_if", in), mkW("weight_ig", in), mkW("weight_io", in)
	l.Whi, l.Whf, l.Whg, l.Who = mkW("weight_hi", hidden), mkW("weight_hf", hidden), mkW("weight_hg", hidden), mkW("weight_ho", hidden)
	mkB := func(suffix string) *Param { return NewParam(fmt.Sprintf("%s.%s", name, suffix), 1, hidden) }
	l.Bii, l.Bif, l.Big, l.Bio = mkB("bias_ii"), mkB("bias_if"), mkB("bias_ig"), mkB("bias_io")
	l.Bhi, l.Bhf, l.Bhg, l.Bho = mkB("bias_hi"), mkB("bias_hf"), mkB("bias_hg"), mkB("bias_ho")

	// Forget-gate bias starts at 1 so early training does not flush the cell.
	for j := 0; j < hidden; j++ {
		l.Bif.Value.Set(0, j, 1)
	}
	return l
}

func (l *LSTMLayer) Params() []*Param {
	return []*Param{
		l.Wii, l.Wif, l.Wig, l.Wio, l.Whi, l.Whf, l.Whg, l.Who,
		l.Bii, l.Bif, l.Big, l.Bio, l.Bhi, l.Bhf, l.Bhg, l.Bho,
	}
}

func (l *LSTMLayer) resetCache() { l.steps = l.steps[:0] }

func (l *LSTMLayer) gate(x, h *mat.Dense, wi, bi, wh, bh *Param) *mat.Dense {
	batch, _ := x.Dims()
	pre := mat.NewDense(batch, l.Hidden, nil)
	pre.Mul(x, wi.Value.T())
	addRow(pre, bi.Value)
	var hh mat.Dense
	hh.Mul(h, wh.Value.T())
	pre.Add(pre, &hh)
	addRow(pre, bh.Value)
	return pre
}

// Step advances one timestep, returning (h', c') and caching for Backward.
func (l *LSTMLayer) Step(x, h, c *mat.Dense) (*mat.Dense, *mat.Dense) {
	i := SigmoidOf(l.gate(x, h, l.Wii, l.Bii, l.Whi, l.Bhi))
	f := SigmoidOf(l.gate(x, h, l.Wif, l.Bif, l.Whf, l.Bhf))
	g := TanhOf(l.gate(x, h, l.Wig, l.Big, l.Whg, l.Bhg))
	o := SigmoidOf(l.gate(x, h, l.Wio, l.Bio, l.Who, l.Bho))

	cNew := mulElem(f, c)
	cNew.Add(cNew, mulElem(i, g))
	tc := TanhOf(cNew)
	hNew := mulElem(o, tc)

	l.steps = append(l.steps, lstmStep{x: x, h: h, c: c, i: i, f: f, g: g, o: o, cNew: cNew, tc: tc})
	return hNew, cNew
}

// stepBackward pops the latest cached step and returns (dx, dhPrev, dcPrev).
func (l *LSTMLayer) stepBackward(dh, dc *mat.Dense) (*mat.Dense, *mat.Dense, *mat.Dense) {
	s := l.steps[len(l.steps)-1]
	l.steps = l.steps[:len(l.steps)-1]

	do := mulElem(dh, s.tc)
	// dc' = dc + dh (.) o (.) (1 - tanh(c')^2)
	dcTotal := clone(dc)
	dcTotal.Add(dcTotal, mulElem(TanhBackward(s.tc, dh), s.o))

	di := mulElem(dcTotal, s.g)
	df := mulElem(dcTotal, s.c)
	dg := mulElem(dcTotal, s.i)
	dcPrev := mulElem(dcTotal, s.f)

	diPre := SigmoidBackward(s.i, di)
	dfPre := SigmoidBackward(s.f, df)
	dgPre := TanhBackward(s.g, dg)
	doPre := SigmoidBackward(s.o, do)

	accum := func(wi, bi, wh, bh *Param, pre *mat.Dense) {
		var dw mat.Dense
		dw.Mul(pre.T(), s.x)
		wi.Grad.Add(wi.Grad, &dw)
		colSumInto(bi.Grad, pre)
		var dwh mat.Dense
		dwh.Mul(pre.T(), s.h)
		wh.Grad.Add(wh.Grad, &dwh)
		colSumInto(bh.Grad, pre)
	}
	accum(l.Wii, l.Bii, l.Whi, l.Bhi, diPre)
	accum(l.Wif, l.Bif, l.Whf, l.Bhf, dfPre)
	accum(l.Wig, l.Big, l.Whg, l.Bhg, dgPre)
	accum(l.Wio, l.Bio, l.Who, l.Bho, doPre)

	batch, _ := dh.Dims()
	dx := mat.NewDense(batch, l.In, nil)
	dhPrev := mat.NewDense(batch, l.Hidden, nil)
	var tmp mat.Dense
	for _, pair := range []struct {
		pre    *mat.Dense
		wi, wh *Param
	}{
		{diPre, l.Wii, l.Whi},
		{dfPre, l.Wif, l.Whf},
		{dgPre, l.Wig, l.Whg},
		{doPre, l.Wio, l.Who},
	} {
		tmp.Reset()
		tmp.Mul(pair.pre, pair.wi.Value)
		dx.Add(dx, &tmp)
		tmp.Reset()
		tmp.Mul(pair.pre, pair.wh.Value)
		dhPrev.Add(dhPrev, &tmp)
	}

	return dx, dhPrev, dcPrev
}

// LSTM stacks LSTMLayers over a time-major sequence. Forward returns the
// final hidden state of the top layer.
type LSTM struct {
	Layers []*LSTMLayer

	seqLen int
}

func NewLSTM(name string, in, hidden, numLayers int, rng *rand.Rand) *LSTM {
	m := &LSTM{Layers: make([]*LSTMLayer, numLayers)}
	for l := 0; l < numLayers; l++ {
		layerIn := in
		if l > 0 {
			layerIn = hidden
		}
		m.Layers[l] = NewLSTMLayer(fmt.Sprintf("%s.l%d", name, l), layerIn, hidden, rng)
	}
	return m
}

func (m *LSTM) Params() []*Param {
	var out []*Param
	for _, l := range m.Layers {
		out = append(out, l.Params()...)
	}
	return out
}

func (m *LSTM) Forward(xs []*mat.Dense) *mat.Dense {
	m.seqLen = len(xs)
	batch, _ := xs[0].Dims()

	seq := xs
	var h *mat.Dense
	for _, layer := range m.Layers {
		layer.resetCache()
		h = mat.NewDense(batch, layer.Hidden, nil)
		c := mat.NewDense(batch, layer.Hidden, nil)
		outs := make([]*mat.Dense, len(seq))
		for t, x := range seq {
			h, c = layer.Step(x, h, c)
			outs[t] = h
		}
		seq = outs
	}
	return h
}

func (m *LSTM) Backward(dLast *mat.Dense) {
	batch, _ := dLast.Dims()
	T := m.seqLen

	top := m.Layers[len(m.Layers)-1]
	dOuts := make([]*mat.Dense, T)
	for t := range dOuts {
		dOuts[t] = mat.NewDense(batch, top.Hidden, nil)
	}
	dOuts[T-1].Add(dOuts[T-1], dLast)

	for li := len(m.Layers) - 1; li >= 0; li-- {
		layer := m.Layers[li]
		dh := mat.NewDense(batch, layer.Hidden, nil)
		dc := mat.NewDense(batch, layer.Hidden, nil)
		dxs := make([]*mat.Dense, T)
		for t := T - 1; t >= 0; t-- {
			dh.Add(dh, dOuts[t])
			dx, dhPrev, dcPrev := layer.stepBackward(dh, dc)
			dxs[t] = dx
			dh, dc = dhPrev, dcPrev
		}
		dOuts = dxs
	}
}
