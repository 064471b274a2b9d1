package evaluator

import (
	"fmt"
	"math"

	"github.com/ckks-eval/evalkit/backend"
	"github.com/ckks-eval/evalkit/internal/telemetry"
)

// MaxNorm is the relative 2-norm threshold below which a decrypted
// ciphertext is considered to agree with its plaintext oracle.
const MaxNorm = 1e-4

// fuzzThreshold is the absolute 2-norm below which both sides of a
// comparison are treated as numerically indistinguishable from zero.
const fuzzThreshold = 1.0 / 2048.0 // 2^-11

// debugEvalState runs a HomomorphicEval and a ScaleEstimator in lockstep
// and cross-checks them after every operation. The Ciphertexts it produces
// carry both a rawCt (fed to the homomorphic side) and a rawPt (fed to the
// estimator side).
type debugEvalState struct {
	homo *homomorphicEvalState
	est  *scaleEstimatorState
	log  *telemetry.Logger
}

func newDebugEvalState(homo *homomorphicEvalState, est *scaleEstimatorState, log *telemetry.Logger) *debugEvalState {
	if log == nil {
		log = telemetry.Default
	}
	return &debugEvalState{homo: homo, est: est, log: log}
}

func splitHomo(ct *Ciphertext) *Ciphertext {
	return &Ciphertext{rawCt: ct.rawCt, level: ct.level, scale: ct.scale, slotCount: ct.slotCount, initialized: ct.initialized}
}

func splitEst(ct *Ciphertext) *Ciphertext {
	return &Ciphertext{rawPt: ct.rawPt, level: ct.level, scale: ct.scale, slotCount: ct.slotCount, initialized: ct.initialized}
}

func (d *debugEvalState) combine(op string, homoOut, estOut *Ciphertext) (*Ciphertext, error) {
	if err := d.crossCheck(op, homoOut, estOut); err != nil {
		return nil, err
	}
	return &Ciphertext{
		rawCt:       homoOut.rawCt,
		rawPt:       estOut.rawPt,
		level:       homoOut.level,
		scale:       homoOut.scale,
		slotCount:   homoOut.slotCount,
		initialized: true,
	}, nil
}

func (d *debugEvalState) crossCheck(op string, homoOut, estOut *Ciphertext) error {
	if homoOut.scale != estOut.scale {
		return fmt.Errorf("evaluator: %s: homomorphic scale %g, estimator scale %g: %w", op, homoOut.scale, estOut.scale, ErrDebugInconsistency)
	}

	actual, err := d.homo.decrypt(homoOut)
	if err != nil {
		return err
	}
	expected := estOut.rawPt

	if err := compareNorms(op, expected, actual, d.log); err != nil {
		return err
	}

	maxLogScale := d.est.estimatedMaxLogScale()
	if math.Log2(homoOut.scale) > maxLogScale {
		d.log.Warnf("%s: ciphertext scale 2^%.2f exceeds estimated safe max 2^%.2f", op, math.Log2(homoOut.scale), maxLogScale)
	}
	return nil
}

// compareNorms implements the relative-2-norm check and its zero-case fuzz
// rule: if both expected and actual 2-norms are at most fuzzThreshold, the
// comparison is not meaningful and passes silently. If only one of them
// is, that is the "weird" half-zero case, a warning rather than a failure.
func compareNorms(op string, expected, actual []float64, log *telemetry.Logger) error {
	expNorm := norm2(expected)
	actNorm := norm2(actual)

	expZero := expNorm <= fuzzThreshold
	actZero := actNorm <= fuzzThreshold
	if expZero && actZero {
		return nil
	}
	if expZero != actZero {
		log.Warnf("%s: one side near zero (expected=%.3g actual=%.3g) while the other is not", op, expNorm, actNorm)
		return nil
	}

	rel := norm2Diff(expected, actual) / expNorm
	if rel > MaxNorm {
		return fmt.Errorf("evaluator: %s: relative 2-norm %.3g exceeds MAX_NORM %.3g (expected log2norm %.2f, actual log2norm %.2f): %w",
			op, rel, MaxNorm, math.Log2(expNorm), math.Log2(actNorm), ErrDebugInconsistency)
	}
	return nil
}

func norm2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func norm2Diff(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (d *debugEvalState) encrypt(vec []float64, level int, scale float64) (*Ciphertext, error) {
	homoOut, err := d.homo.encrypt(vec, level, scale)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.encrypt(vec, level, scale)
	if err != nil {
		return nil, err
	}
	return d.combine("encrypt", homoOut, estOut)
}

func (d *debugEvalState) decrypt(ct *Ciphertext) ([]float64, error) {
	return d.homo.decrypt(splitHomo(ct))
}

func (d *debugEvalState) rotate(ct *Ciphertext, steps int) (*Ciphertext, error) {
	homoOut, err := d.homo.rotate(splitHomo(ct), steps)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.rotate(splitEst(ct), steps)
	if err != nil {
		return nil, err
	}
	return d.combine("rotate", homoOut, estOut)
}

func (d *debugEvalState) negate(ct *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.negate(splitHomo(ct))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.negate(splitEst(ct))
	if err != nil {
		return nil, err
	}
	return d.combine("negate", homoOut, estOut)
}

func (d *debugEvalState) add(a, b *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.add(splitHomo(a), splitHomo(b))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.add(splitEst(a), splitEst(b))
	if err != nil {
		return nil, err
	}
	return d.combine("add", homoOut, estOut)
}

func (d *debugEvalState) sub(a, b *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.sub(splitHomo(a), splitHomo(b))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.sub(splitEst(a), splitEst(b))
	if err != nil {
		return nil, err
	}
	return d.combine("sub", homoOut, estOut)
}

func (d *debugEvalState) addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	homoOut, err := d.homo.addPlain(splitHomo(ct), vec)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.addPlain(splitEst(ct), vec)
	if err != nil {
		return nil, err
	}
	return d.combine("addPlain", homoOut, estOut)
}

func (d *debugEvalState) subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	homoOut, err := d.homo.subPlain(splitHomo(ct), vec)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.subPlain(splitEst(ct), vec)
	if err != nil {
		return nil, err
	}
	return d.combine("subPlain", homoOut, estOut)
}

func (d *debugEvalState) multiply(a, b *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.multiply(splitHomo(a), splitHomo(b))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.multiply(splitEst(a), splitEst(b))
	if err != nil {
		return nil, err
	}
	return d.combine("multiply", homoOut, estOut)
}

func (d *debugEvalState) multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	homoOut, err := d.homo.multiplyPlain(splitHomo(ct), vec)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.multiplyPlain(splitEst(ct), vec)
	if err != nil {
		return nil, err
	}
	return d.combine("multiplyPlain", homoOut, estOut)
}

func (d *debugEvalState) multiplyPlainZero(ct *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.multiplyPlainZero(splitHomo(ct))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.multiplyPlainZero(splitEst(ct))
	if err != nil {
		return nil, err
	}
	return d.combine("multiplyPlainZero", homoOut, estOut)
}

func (d *debugEvalState) square(ct *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.square(splitHomo(ct))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.square(splitEst(ct))
	if err != nil {
		return nil, err
	}
	return d.combine("square", homoOut, estOut)
}

func (d *debugEvalState) relinearize(ct *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.relinearize(splitHomo(ct))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.relinearize(splitEst(ct))
	if err != nil {
		return nil, err
	}
	return d.combine("relinearize", homoOut, estOut)
}

func (d *debugEvalState) rescaleToNext(ct *Ciphertext) (*Ciphertext, error) {
	homoOut, err := d.homo.rescaleToNext(splitHomo(ct))
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.rescaleToNext(splitEst(ct))
	if err != nil {
		return nil, err
	}
	return d.combine("rescaleToNext", homoOut, estOut)
}

func (d *debugEvalState) modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error) {
	homoOut, err := d.homo.modSwitchToLevel(splitHomo(ct), level)
	if err != nil {
		return nil, err
	}
	estOut, err := d.est.modSwitchToLevel(splitEst(ct), level)
	if err != nil {
		return nil, err
	}
	return d.combine("modSwitchToLevel", homoOut, estOut)
}

func (d *debugEvalState) reset() {
	d.est.reset()
}

// DebugEval composes a HomomorphicEval and a ScaleEstimator, running both
// on every operation and asserting they stay consistent.
type DebugEval struct {
	*Evaluator
	state *debugEvalState
}

// NewDebugEval builds a DebugEval over b, using maxModBits and safetyMargin
// for the embedded ScaleEstimator. Pass a nil logger to use
// internal/telemetry's default.
func NewDebugEval(b backend.Backend, maxModBits, safetyMargin float64, log *telemetry.Logger) *DebugEval {
	homo := newHomomorphicEvalState(b)
	est := newScaleEstimatorState(b.SlotCount(), b.MaxLevel(), b.ModulusChain(), maxModBits, safetyMargin)
	st := newDebugEvalState(homo, est, log)
	return &DebugEval{
		Evaluator: &Evaluator{v: st, slotCount: b.SlotCount(), maxLevel: b.MaxLevel(), modulusChain: b.ModulusChain()},
		state:     st,
	}
}

// GetEstimatedMaxLogScale returns log2 of the largest scale the embedded
// ScaleEstimator currently considers safe.
func (d *DebugEval) GetEstimatedMaxLogScale() float64 { return d.state.est.estimatedMaxLogScale() }

// GetExactMaxLogPlainVal returns log2 of the running maximum plaintext
// magnitude observed by the embedded ScaleEstimator.
func (d *DebugEval) GetExactMaxLogPlainVal() float64 { return d.state.est.logMaxPlainVal() }
