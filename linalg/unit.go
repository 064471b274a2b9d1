// Package linalg implements matrix and vector containers packed into grids
// of ciphertexts, and the linear-algebra operations realized purely out of
// evaluator primitives (rotate, add, multiply, their plaintext variants).
// It is agnostic to which evaluator.Evaluator variant it runs against: the
// same LinearAlgebra code measures depth with a DepthFinder-backed
// evaluator and runs homomorphically with a HomomorphicEval-backed one.
package linalg

import (
	"fmt"

	"github.com/ckks-eval/evalkit/evaluator"
)

// Unit is a fixed h×w tile shape with h·w equal to the evaluator's slot
// count; both dimensions must be powers of two.
type Unit struct {
	H, W int
}

// NewUnit builds a Unit with the given height against slotCount, deriving
// width as slotCount/h.
func NewUnit(h, slotCount int) (Unit, error) {
	if h <= 0 || slotCount%h != 0 {
		return Unit{}, fmt.Errorf("linalg: height %d does not divide slot count %d: %w", h, slotCount, evaluator.ErrShape)
	}
	u := Unit{H: h, W: slotCount / h}
	if err := u.validate(slotCount); err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (u Unit) validate(slotCount int) error {
	if !isPowerOfTwo(u.H) || !isPowerOfTwo(u.W) {
		return fmt.Errorf("linalg: unit dimensions (%d,%d) must both be powers of two: %w", u.H, u.W, evaluator.ErrShape)
	}
	if u.H*u.W != slotCount {
		return fmt.Errorf("linalg: unit (%d,%d) does not cover slot count %d: %w", u.H, u.W, slotCount, evaluator.ErrShape)
	}
	return nil
}

// Equal reports whether u and other have identical dimensions.
func (u Unit) Equal(other Unit) bool { return u.H == other.H && u.W == other.W }

// Size returns h*w, the slot count this unit tiles.
func (u Unit) Size() int { return u.H * u.W }

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func ceilDiv(a, b int) int { return (a + b - 1) / b }
