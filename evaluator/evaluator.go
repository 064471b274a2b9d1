package evaluator

import "fmt"

// variant is the hook set a concrete evaluator variant must implement.
// Evaluator validates preamble conditions (initialization, level/scale
// compatibility, shape) and then delegates to these methods; each method
// assumes its preamble already holds and returns a fresh Ciphertext rather
// than mutating its operands, mirroring the backend's own ...New
// primitives.
type variant interface {
	encrypt(vec []float64, level int, scale float64) (*Ciphertext, error)
	decrypt(ct *Ciphertext) ([]float64, error)

	rotate(ct *Ciphertext, steps int) (*Ciphertext, error)
	negate(ct *Ciphertext) (*Ciphertext, error)
	add(a, b *Ciphertext) (*Ciphertext, error)
	sub(a, b *Ciphertext) (*Ciphertext, error)
	addPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error)
	subPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error)
	multiply(a, b *Ciphertext) (*Ciphertext, error)
	multiplyPlain(ct *Ciphertext, vec []float64) (*Ciphertext, error)
	// multiplyPlainZero handles the distinguished all-zero-vector case: the
	// result is a valid zero ciphertext at ct's own level and scale,
	// bypassing whatever multiplyPlain would otherwise do.
	multiplyPlainZero(ct *Ciphertext) (*Ciphertext, error)
	square(ct *Ciphertext) (*Ciphertext, error)
	relinearize(ct *Ciphertext) (*Ciphertext, error)
	rescaleToNext(ct *Ciphertext) (*Ciphertext, error)
	modSwitchToLevel(ct *Ciphertext, level int) (*Ciphertext, error)

	reset()
}

// Evaluator is the public dispatcher shared by every variant. It owns
// nothing backend-specific itself; all of that lives behind the variant
// interface.
type Evaluator struct {
	v            variant
	slotCount    int
	maxLevel     int
	modulusChain []uint64
}

// SlotCount returns the number of slots ciphertexts produced by e carry.
func (e *Evaluator) SlotCount() int { return e.slotCount }

// MaxLevel returns the top level ciphertexts start at when encrypted with
// the -1 sentinel level.
func (e *Evaluator) MaxLevel() int { return e.maxLevel }

// ModulusChain returns the ordered prime sizes consumed one per rescale,
// shared identically by every variant built over the same backend
// parameters.
func (e *Evaluator) ModulusChain() []uint64 { return e.modulusChain }

// Reset clears e's accumulators (depth, max plaintext, op counters) without
// invalidating outstanding ciphertexts or discarding keys/backend context.
func (e *Evaluator) Reset() { e.v.reset() }

// Encrypt produces a fresh Ciphertext at level (or, if level is -1, at
// e.MaxLevel()) and scale. vec must have length e.SlotCount(); variants
// that do not carry plaintext or ciphertext state (DepthFinder, OpCount)
// ignore its values but still validate its length.
func (e *Evaluator) Encrypt(vec []float64, level int, scale float64) (*Ciphertext, error) {
	if len(vec) != e.slotCount {
		return nil, fmt.Errorf("evaluator: encrypt: vector length %d, want %d: %w", len(vec), e.slotCount, ErrShape)
	}
	if level == -1 {
		level = e.maxLevel
	}
	if level < 0 || level > e.maxLevel {
		return nil, fmt.Errorf("evaluator: encrypt: level %d out of range [0,%d]: %w", level, e.maxLevel, ErrParameter)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("evaluator: encrypt: scale must be positive: %w", ErrParameter)
	}
	return e.v.encrypt(vec, level, scale)
}

// Decrypt recovers the approximate plaintext vector carried by ct. Variants
// that carry neither a backend ciphertext nor a plaintext shadow
// (DepthFinder, OpCount) return an error.
func (e *Evaluator) Decrypt(ct *Ciphertext) ([]float64, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.decrypt(ct)
}

// RotateLeft cyclically shifts ct's slots left by steps. steps must be a
// positive integer strictly less than SlotCount()/2.
func (e *Evaluator) RotateLeft(ct *Ciphertext, steps int) (*Ciphertext, error) {
	if err := e.checkRotationSteps(steps); err != nil {
		return nil, err
	}
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.rotate(ct, steps)
}

// RotateRight cyclically shifts ct's slots right by steps. steps must be a
// positive integer strictly less than SlotCount()/2.
func (e *Evaluator) RotateRight(ct *Ciphertext, steps int) (*Ciphertext, error) {
	if err := e.checkRotationSteps(steps); err != nil {
		return nil, err
	}
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.rotate(ct, -steps)
}

func (e *Evaluator) checkRotationSteps(steps int) error {
	if steps <= 0 || steps >= e.slotCount/2 {
		return fmt.Errorf("evaluator: rotation steps %d out of range (0,%d): %w", steps, e.slotCount/2, ErrParameter)
	}
	return nil
}

// Negate returns -ct. No level/scale effect.
func (e *Evaluator) Negate(ct *Ciphertext) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.negate(ct)
}

// Add returns ct1 + ct2. Requires equal level and equal scale.
func (e *Evaluator) Add(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if err := e.checkBinaryCompatible(ct1, ct2); err != nil {
		return nil, err
	}
	if err := checkSameScale(ct1, ct2); err != nil {
		return nil, err
	}
	return e.v.add(ct1, ct2)
}

// Sub returns ct1 - ct2. Requires equal level and equal scale.
func (e *Evaluator) Sub(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if err := e.checkBinaryCompatible(ct1, ct2); err != nil {
		return nil, err
	}
	if err := checkSameScale(ct1, ct2); err != nil {
		return nil, err
	}
	return e.v.sub(ct1, ct2)
}

// AddPlainScalar returns ct + scalar, broadcasting scalar to every slot. No
// level/scale effect.
func (e *Evaluator) AddPlainScalar(ct *Ciphertext, scalar float64) (*Ciphertext, error) {
	return e.AddPlainVector(ct, e.broadcast(scalar))
}

// AddPlainVector returns ct + vec, elementwise. vec must have length
// SlotCount(). No level/scale effect.
func (e *Evaluator) AddPlainVector(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	if err := e.checkVectorShape(vec); err != nil {
		return nil, err
	}
	return e.v.addPlain(ct, vec)
}

// SubPlainScalar returns ct - scalar, broadcasting scalar to every slot. No
// level/scale effect.
func (e *Evaluator) SubPlainScalar(ct *Ciphertext, scalar float64) (*Ciphertext, error) {
	return e.SubPlainVector(ct, e.broadcast(scalar))
}

// SubPlainVector returns ct - vec, elementwise. vec must have length
// SlotCount(). No level/scale effect.
func (e *Evaluator) SubPlainVector(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	if err := e.checkVectorShape(vec); err != nil {
		return nil, err
	}
	return e.v.subPlain(ct, vec)
}

// Multiply returns ct1 * ct2. Requires equal level and equal scale. Result
// scale is scale1*scale2; result level is unchanged.
func (e *Evaluator) Multiply(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if err := e.checkBinaryCompatible(ct1, ct2); err != nil {
		return nil, err
	}
	if err := checkSameScale(ct1, ct2); err != nil {
		return nil, err
	}
	return e.v.multiply(ct1, ct2)
}

// MultiplyPlainScalar returns ct * scalar. A zero scalar is a distinguished
// case: the result is a valid zero ciphertext at ct's own level and scale,
// bypassing whatever the backend would otherwise do with a zero plaintext.
func (e *Evaluator) MultiplyPlainScalar(ct *Ciphertext, scalar float64) (*Ciphertext, error) {
	return e.MultiplyPlainVector(ct, e.broadcast(scalar))
}

// MultiplyPlainVector returns ct * vec, elementwise. vec must have length
// SlotCount(). An all-zero vec is handled as in MultiplyPlainScalar.
func (e *Evaluator) MultiplyPlainVector(ct *Ciphertext, vec []float64) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	if err := e.checkVectorShape(vec); err != nil {
		return nil, err
	}
	if isZeroVector(vec) {
		return e.v.multiplyPlainZero(ct)
	}
	return e.v.multiplyPlain(ct, vec)
}

// Square returns ct * ct. Equivalent to Multiply(ct, ct) but variants may
// implement it more efficiently.
func (e *Evaluator) Square(ct *Ciphertext) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.square(ct)
}

// Relinearize reduces ct's polynomial degree back to two after a
// non-linear multiply. Required before any further multiply; idempotent
// until the next multiply.
func (e *Evaluator) Relinearize(ct *Ciphertext) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	return e.v.relinearize(ct)
}

// RescaleToNext decrements ct's level by one and divides its scale by the
// modulus prime consumed at the current level. Fails if ct is at level 0.
func (e *Evaluator) RescaleToNext(ct *Ciphertext) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	if ct.level == 0 {
		return nil, fmt.Errorf("evaluator: rescale: already at level 0: %w", ErrLevelMismatch)
	}
	return e.v.rescaleToNext(ct)
}

// ModSwitchToLevel drops ct to targetLevel without changing scale.
// targetLevel must be <= ct.Level(); it is a no-op if equal.
func (e *Evaluator) ModSwitchToLevel(ct *Ciphertext, targetLevel int) (*Ciphertext, error) {
	if err := checkInitialized(ct); err != nil {
		return nil, err
	}
	if targetLevel > ct.level {
		return nil, fmt.Errorf("evaluator: modSwitchToLevel: target %d above current level %d: %w", targetLevel, ct.level, ErrLevelMismatch)
	}
	if targetLevel < 0 {
		return nil, fmt.Errorf("evaluator: modSwitchToLevel: target level %d negative: %w", targetLevel, ErrParameter)
	}
	return e.v.modSwitchToLevel(ct, targetLevel)
}

func (e *Evaluator) broadcast(scalar float64) []float64 {
	vec := make([]float64, e.slotCount)
	for i := range vec {
		vec[i] = scalar
	}
	return vec
}

func (e *Evaluator) checkVectorShape(vec []float64) error {
	if len(vec) != e.slotCount {
		return fmt.Errorf("evaluator: plain vector length %d, want %d: %w", len(vec), e.slotCount, ErrShape)
	}
	return nil
}

func (e *Evaluator) checkBinaryCompatible(a, b *Ciphertext) error {
	if err := checkInitialized(a); err != nil {
		return err
	}
	if err := checkInitialized(b); err != nil {
		return err
	}
	return checkBinaryCompatible(a, b)
}

// checkInitialized reports ErrUninitialized if ct was never produced by
// encryption (or the variant's own fresh-ciphertext constructor).
func checkInitialized(ct *Ciphertext) error {
	if ct == nil || !ct.initialized {
		return fmt.Errorf("evaluator: %w", ErrUninitialized)
	}
	return nil
}

// checkBinaryCompatible reports ErrLevelMismatch or ErrShape if a and b are
// not at the same level or do not carry the same slot count. Both operands
// must already be known-initialized.
func checkBinaryCompatible(a, b *Ciphertext) error {
	if a.slotCount != b.slotCount {
		return fmt.Errorf("evaluator: slot count %d vs %d: %w", a.slotCount, b.slotCount, ErrShape)
	}
	if a.level != b.level {
		return fmt.Errorf("evaluator: level %d vs %d: %w", a.level, b.level, ErrLevelMismatch)
	}
	return nil
}

// checkSameScale reports ErrScaleMismatch if a and b carry different
// scales. Scales are never auto-aligned.
func checkSameScale(a, b *Ciphertext) error {
	if a.scale != b.scale {
		return fmt.Errorf("evaluator: scale %g vs %g: %w", a.scale, b.scale, ErrScaleMismatch)
	}
	return nil
}

// isZeroVector reports whether every entry of vec is exactly zero, the
// condition that triggers the distinguished zero-scalar-multiply case.
func isZeroVector(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
