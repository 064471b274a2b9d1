package evaluator

import "math"

// scaleEstimatorState embeds plaintextEvalState for exact level/scale/
// plaintext bookkeeping and additionally reports the largest scale that
// keeps every encoded plaintext below the backend's maximum representable
// magnitude.
type scaleEstimatorState struct {
	*plaintextEvalState

	maxModBits   float64
	safetyMargin float64
}

func newScaleEstimatorState(slotCount, maxLevel int, modulusChain []uint64, maxModBits, safetyMargin float64) *scaleEstimatorState {
	return &scaleEstimatorState{
		plaintextEvalState: newPlaintextEvalState(slotCount, maxLevel, modulusChain),
		maxModBits:         maxModBits,
		safetyMargin:       safetyMargin,
	}
}

// logMaxPlainVal returns log2 of the running maximum plaintext magnitude,
// treating an unseen (zero) maximum as 1 so the result stays finite.
func (s *scaleEstimatorState) logMaxPlainVal() float64 {
	m := s.maxAbs()
	if m <= 0 {
		m = 1
	}
	return math.Log2(m)
}

func (s *scaleEstimatorState) estimatedMaxLogScale() float64 {
	return s.maxModBits - s.logMaxPlainVal() - s.safetyMargin
}

// ScaleEstimator embeds a PlaintextEval and reports log2 of the largest
// scale a circuit can safely use, given the modulus budget it was built
// with and the running maximum plaintext magnitude observed so far.
type ScaleEstimator struct {
	*Evaluator
	state *scaleEstimatorState
}

// NewScaleEstimator builds a ScaleEstimator. maxModBits is the total
// modulus bit budget (see internal/config.MaxModBitsFor); safetyMargin is
// typically internal/config.DefaultScaleSafetyMargin.
func NewScaleEstimator(slotCount, maxLevel int, modulusChain []uint64, maxModBits, safetyMargin float64) *ScaleEstimator {
	st := newScaleEstimatorState(slotCount, maxLevel, modulusChain, maxModBits, safetyMargin)
	return &ScaleEstimator{
		Evaluator: &Evaluator{v: st, slotCount: slotCount, maxLevel: maxLevel, modulusChain: modulusChain},
		state:     st,
	}
}

// GetExactMaxLogPlainVal returns log2 of the running maximum plaintext
// magnitude observed since construction or the last Reset.
func (s *ScaleEstimator) GetExactMaxLogPlainVal() float64 { return s.state.logMaxPlainVal() }

// GetEstimatedMaxLogScale returns log2 of the largest scale that keeps
// every encoded plaintext observed so far below the backend's maximum
// representable magnitude.
func (s *ScaleEstimator) GetEstimatedMaxLogScale() float64 { return s.state.estimatedMaxLogScale() }

// UpdatePlaintextMaxVal injects an upper bound on plaintext magnitude, for
// circuits that would otherwise leave the estimator unable to see its
// inputs.
func (s *ScaleEstimator) UpdatePlaintextMaxVal(x float64) { s.state.updateMax(x) }
