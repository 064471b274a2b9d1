package evaluator

import "sync"

// plaintextEvalState carries the raw plaintext vector through every op
// alongside the level/scale bookkeeping it inherits from depthFinderState,
// so it can serve as an exact reference oracle for the other variants.
type plaintextEvalState struct {
	*depthFinderState

	mu            sync.RWMutex
	runningMaxAbs float64
}

func newPlaintextEvalState(slotCount, maxLevel int, modulusChain []uint64) *plaintextEvalState {
	return &plaintextEvalState{depthFinderState: newDepthFinderState(slotCount, maxLevel, modulusChain)}
}

func (p *plaintextEvalState) observeMax(vec []float64) {
	var m float64
	for _, v := range vec {
		if a := absf(v); a > m {
			m = a
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if m > p.runningMaxAbs {
		p.runningMaxAbs = m
	}
}

// maxAbs returns the running maximum of |rawPt[i]| observed across every
// ciphertext produced since construction or the last Reset.
func (p *plaintextEvalState) maxAbs() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runningMaxAbs
}

// updateMax injects an upper bound directly, for circuits whose inputs
// would otherwise never flow through observeMax.
func (p *plaintextEvalState) updateMax(x float64) {
	x = absf(x)
	p.mu.Lock()
	defer p.mu.Unlock()
	if x > p.runningMaxAbs {
		p.runningMaxAbs = x
	}
}

func (p *plaintextEvalState) wrap(base *Ciphertext, rawPt []float64) *Ciphertext {
	base.rawPt = rawPt
	p.observeMax(rawPt)
	return base
}

func (p *plaintextEvalState) encrypt(vec []float64, level int, scale float64) (*Ciphertext, error) {
	base, err := p.depthFinderState.encrypt(vec, level, scale)
	if err != nil {
		return nil, err
	}
	cpy := make([]float64, len(vec))
	copy(cpy, vec)
	return p.wrap(base, cpy), nil
}

func (p *plaintextEvalState) decrypt(ct *Ciphertext) ([]float64, error) {
	out := make([]float64, len(ct.rawPt))
	copy(out, ct.rawPt)
	return out, nil
}

func (p *plaintextEvalState) rotate(ct *Ciphertext, steps int) (*Ciphertext, error) {
	base, err := p.depthFinderState.rotate(ct, steps)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, rotateSlice(ct.rawPt, steps)), nil
}

func (p *plaintextEvalState) negate(ct *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.negate(ct)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ct.rawPt))
	for i, v := range ct.rawPt {
		out[i] = -v
	}
	return p.wrap(base, out), nil
}

func (p *plaintextEvalState) add(a, b *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.add(a, b)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(a.rawPt, b.rawPt, func(x, y float64) float64 { return x + y })), nil
}

func (p *plaintextEvalState) sub(a, b *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.sub(a, b)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(a.rawPt, b.rawPt, func(x, y float64) float64 { return x - y })), nil
}

func (p *plaintextEvalState) addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	base, err := p.depthFinderState.addPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(ct.rawPt, vec, func(x, y float64) float64 { return x + y })), nil
}

func (p *plaintextEvalState) subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	base, err := p.depthFinderState.subPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(ct.rawPt, vec, func(x, y float64) float64 { return x - y })), nil
}

func (p *plaintextEvalState) multiply(a, b *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.multiply(a, b)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(a.rawPt, b.rawPt, func(x, y float64) float64 { return x * y })), nil
}

func (p *plaintextEvalState) multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	base, err := p.depthFinderState.multiplyPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, elementwise(ct.rawPt, vec, func(x, y float64) float64 { return x * y })), nil
}

func (p *plaintextEvalState) multiplyPlainZero(ct *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.multiplyPlainZero(ct)
	if err != nil {
		return nil, err
	}
	return p.wrap(base, make([]float64, len(ct.rawPt))), nil
}

func (p *plaintextEvalState) square(ct *Ciphertext) (*Ciphertext, error) {
	return p.multiply(ct, ct)
}

func (p *plaintextEvalState) relinearize(ct *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.relinearize(ct)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ct.rawPt))
	copy(out, ct.rawPt)
	return p.wrap(base, out), nil
}

func (p *plaintextEvalState) rescaleToNext(ct *Ciphertext) (*Ciphertext, error) {
	base, err := p.depthFinderState.rescaleToNext(ct)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ct.rawPt))
	copy(out, ct.rawPt)
	return p.wrap(base, out), nil
}

func (p *plaintextEvalState) modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error) {
	base, err := p.depthFinderState.modSwitchToLevel(ct, level)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ct.rawPt))
	copy(out, ct.rawPt)
	return p.wrap(base, out), nil
}

func (p *plaintextEvalState) reset() {
	p.depthFinderState.reset()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runningMaxAbs = 0
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func elementwise(a, b []float64, op func(x, y float64) float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return out
}

// rotateSlice returns a copy of vec cyclically shifted left by steps
// (negative steps shift right).
func rotateSlice(vec []float64, steps int) []float64 {
	n := len(vec)
	out := make([]float64, n)
	steps = ((steps % n) + n) % n
	for i := 0; i < n; i++ {
		out[i] = vec[(i+steps)%n]
	}
	return out
}

// PlaintextEval is the variant that carries the un-encoded real vector
// alongside each ciphertext's level/scale metadata, serving as an exact
// reference oracle for the other variants.
type PlaintextEval struct {
	*Evaluator
	state *plaintextEvalState
}

// NewPlaintextEval builds a PlaintextEval over the given slot count,
// starting level, and modulus chain.
func NewPlaintextEval(slotCount, maxLevel int, modulusChain []uint64) *PlaintextEval {
	st := newPlaintextEvalState(slotCount, maxLevel, modulusChain)
	return &PlaintextEval{
		Evaluator: &Evaluator{v: st, slotCount: slotCount, maxLevel: maxLevel, modulusChain: modulusChain},
		state:     st,
	}
}

// GetExactMaxPlainVal returns the running maximum of |rawPt[i]| observed
// across every ciphertext produced since construction or the last Reset.
func (p *PlaintextEval) GetExactMaxPlainVal() float64 { return p.state.maxAbs() }

// UpdatePlaintextMaxVal injects an upper bound on plaintext magnitude,
// useful when a circuit is effectively a no-op and would otherwise leave
// the running maximum unable to see its inputs.
func (p *PlaintextEval) UpdatePlaintextMaxVal(x float64) { p.state.updateMax(x) }
