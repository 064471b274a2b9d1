package evaluator

import (
	"fmt"
	"sync"
)

// depthFinderState is the hook implementation shared by DepthFinder and,
// embedded, by every other variant that needs identical level bookkeeping
// (PlaintextEval, OpCount). It never touches rawCt or rawPt.
type depthFinderState struct {
	mu sync.RWMutex

	slotCount    int
	maxLevel     int
	modulusChain []uint64

	observedMinLevel int
}

func newDepthFinderState(slotCount, maxLevel int, modulusChain []uint64) *depthFinderState {
	return &depthFinderState{
		slotCount:        slotCount,
		maxLevel:         maxLevel,
		modulusChain:     modulusChain,
		observedMinLevel: maxLevel,
	}
}

func (d *depthFinderState) observe(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if level < d.observedMinLevel {
		d.observedMinLevel = level
	}
}

// depth returns max(initialLevel - observedMinLevel) across every
// ciphertext this state has produced.
func (d *depthFinderState) depth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxLevel - d.observedMinLevel
}

func (d *depthFinderState) fresh(level int, scale float64) *Ciphertext {
	d.observe(level)
	return &Ciphertext{level: level, scale: scale, slotCount: d.slotCount, initialized: true}
}

func (d *depthFinderState) encrypt(vec []float64, level int, scale float64) (*Ciphertext, error) {
	return d.fresh(level, scale), nil
}

func (d *depthFinderState) decrypt(ct *Ciphertext) ([]float64, error) {
	return nil, fmt.Errorf("evaluator: DepthFinder carries no value to decrypt: %w", ErrUninitialized)
}

func (d *depthFinderState) rotate(ct *Ciphertext, steps int) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) negate(ct *Ciphertext) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) add(a, b *Ciphertext) (*Ciphertext, error) {
	return d.fresh(a.level, a.scale), nil
}

func (d *depthFinderState) sub(a, b *Ciphertext) (*Ciphertext, error) {
	return d.fresh(a.level, a.scale), nil
}

func (d *depthFinderState) addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) multiply(a, b *Ciphertext) (*Ciphertext, error) {
	return d.fresh(a.level, a.scale*b.scale), nil
}

func (d *depthFinderState) multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale*ct.scale), nil
}

func (d *depthFinderState) multiplyPlainZero(ct *Ciphertext) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) square(ct *Ciphertext) (*Ciphertext, error) {
	return d.multiply(ct, ct)
}

func (d *depthFinderState) relinearize(ct *Ciphertext) (*Ciphertext, error) {
	return d.fresh(ct.level, ct.scale), nil
}

func (d *depthFinderState) rescaleToNext(ct *Ciphertext) (*Ciphertext, error) {
	prime := d.modulusChain[ct.level]
	return d.fresh(ct.level-1, ct.scale/float64(prime)), nil
}

func (d *depthFinderState) modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error) {
	return d.fresh(level, ct.scale), nil
}

func (d *depthFinderState) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observedMinLevel = d.maxLevel
}

// DepthFinder is the variant that tracks only level, to compute the
// multiplicative depth of a circuit without touching plaintext or backend
// state at all.
type DepthFinder struct {
	*Evaluator
	state *depthFinderState
}

// NewDepthFinder builds a DepthFinder over the given slot count, starting
// level, and modulus chain (ordered prime sizes consumed one per rescale,
// indexed by level).
func NewDepthFinder(slotCount, maxLevel int, modulusChain []uint64) *DepthFinder {
	st := newDepthFinderState(slotCount, maxLevel, modulusChain)
	return &DepthFinder{
		Evaluator: &Evaluator{v: st, slotCount: slotCount, maxLevel: maxLevel, modulusChain: modulusChain},
		state:     st,
	}
}

// GetMultiplicativeDepth returns the maximum drop in level observed across
// every ciphertext produced since construction or the last Reset.
func (d *DepthFinder) GetMultiplicativeDepth() int { return d.state.depth() }
