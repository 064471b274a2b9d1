package evaluator

import "sync"

// OpCounters accumulates the per-operation counts OpCount tracks. Field
// names match the diagnostic vocabulary printed by the CLI and compared in
// tests.
type OpCounters struct {
	Multiplies               int
	Additions                int
	Negations                int
	Rotations                int
	ModDownInvocations       int
	ModDownAccumulatedLevels int
}

// opCountState embeds depthFinderState for level bookkeeping and adds
// counters guarded by their own lock.
type opCountState struct {
	*depthFinderState

	mu       sync.RWMutex
	counters OpCounters
}

func newOpCountState(slotCount, maxLevel int, modulusChain []uint64) *opCountState {
	return &opCountState{depthFinderState: newDepthFinderState(slotCount, maxLevel, modulusChain)}
}

func (o *opCountState) snapshot() OpCounters {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.counters
}

func (o *opCountState) incr(delta func(*OpCounters)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delta(&o.counters)
}

func (o *opCountState) rotate(ct *Ciphertext, steps int) (*Ciphertext, error) {
	out, err := o.depthFinderState.rotate(ct, steps)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Rotations++; c.Additions++ })
	return out, nil
}

func (o *opCountState) negate(ct *Ciphertext) (*Ciphertext, error) {
	out, err := o.depthFinderState.negate(ct)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Negations++ })
	return out, nil
}

func (o *opCountState) add(a, b *Ciphertext) (*Ciphertext, error) {
	out, err := o.depthFinderState.add(a, b)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Additions++ })
	return out, nil
}

func (o *opCountState) sub(a, b *Ciphertext) (*Ciphertext, error) {
	out, err := o.depthFinderState.sub(a, b)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Additions++ })
	return out, nil
}

func (o *opCountState) addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	out, err := o.depthFinderState.addPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Additions++ })
	return out, nil
}

func (o *opCountState) subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	out, err := o.depthFinderState.subPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Additions++ })
	return out, nil
}

func (o *opCountState) multiply(a, b *Ciphertext) (*Ciphertext, error) {
	out, err := o.depthFinderState.multiply(a, b)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Multiplies++ })
	return out, nil
}

func (o *opCountState) multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	out, err := o.depthFinderState.multiplyPlain(ct, vec)
	if err != nil {
		return nil, err
	}
	o.incr(func(c *OpCounters) { c.Multiplies++ })
	return out, nil
}

func (o *opCountState) square(ct *Ciphertext) (*Ciphertext, error) {
	return o.multiply(ct, ct)
}

func (o *opCountState) modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error) {
	out, err := o.depthFinderState.modSwitchToLevel(ct, level)
	if err != nil {
		return nil, err
	}
	if ct.level > level {
		dropped := ct.level - level
		o.incr(func(c *OpCounters) {
			c.ModDownInvocations++
			c.ModDownAccumulatedLevels += dropped
		})
	}
	return out, nil
}

func (o *opCountState) reset() {
	o.depthFinderState.reset()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counters = OpCounters{}
}

// OpCount is the variant that accumulates per-operation counters while
// embedding a DepthFinder for level bookkeeping.
type OpCount struct {
	*Evaluator
	state *opCountState
}

// NewOpCount builds an OpCount over the given slot count, starting level,
// and modulus chain.
func NewOpCount(slotCount, maxLevel int, modulusChain []uint64) *OpCount {
	st := newOpCountState(slotCount, maxLevel, modulusChain)
	return &OpCount{
		Evaluator: &Evaluator{v: st, slotCount: slotCount, maxLevel: maxLevel, modulusChain: modulusChain},
		state:     st,
	}
}

// GetMultiplicativeDepth returns the depth observed so far, delegating to
// the embedded DepthFinder bookkeeping.
func (o *OpCount) GetMultiplicativeDepth() int { return o.state.depth() }

// PrintOpCount returns a snapshot of the accumulated counters.
func (o *OpCount) PrintOpCount() OpCounters { return o.state.snapshot() }
