package evaluator

import "errors"

// Sentinel errors returned by the evaluator family. Callers should use
// errors.Is against these, not string matching; every returned error wraps
// one of them via fmt.Errorf("...: %w", ...).
var (
	// ErrUninitialized is returned when an operand was not produced by
	// encryption (or by the variant's own fresh-ciphertext constructor).
	ErrUninitialized = errors.New("evaluator: operand not initialized")

	// ErrShape is returned for a dimension or encoding-unit mismatch, or
	// when a plain vector's length does not equal the slot count.
	ErrShape = errors.New("evaluator: shape mismatch")

	// ErrLevelMismatch is returned when binary-op operands sit at
	// different levels, when a rescale would take a level below zero, or
	// when a mod-switch target lies above the current level.
	ErrLevelMismatch = errors.New("evaluator: level mismatch")

	// ErrScaleMismatch is returned when binary-op operands carry different
	// scales.
	ErrScaleMismatch = errors.New("evaluator: scale mismatch")

	// ErrParameter is returned for an out-of-range parameter: rotation
	// steps outside (0, slotCount/2), an encryption level outside
	// [0, MaxLevel] or a non-positive scale, or a negative mod-switch
	// target. Ring-dimension and modulus-budget table lookups report
	// config.ErrParameter instead.
	ErrParameter = errors.New("evaluator: invalid parameter")

	// ErrBackend wraps a failure raised by the concrete Backend.
	ErrBackend = errors.New("evaluator: backend failure")

	// ErrDebugInconsistency is returned by DebugEval when its homomorphic
	// and estimator sub-evaluators disagree on scale, or when a decrypted
	// ciphertext diverges from its plaintext oracle beyond MAX_NORM.
	ErrDebugInconsistency = errors.New("evaluator: debug inconsistency")
)
