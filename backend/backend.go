// Package backend defines the black-box contract that evalkit's evaluator
// family is built on top of: encode/encrypt/decrypt plus the twelve raw
// ciphertext primitives a CKKS implementation must provide. The contract is
// intentionally thin — inventing CKKS primitives, the number-theoretic
// transform, and bootstrapping are all explicitly out of scope for evalkit;
// they belong to whatever concrete Backend is plugged in. The only
// implementation shipped here (LattigoBackend, in lattigo.go) delegates to
// github.com/tuneinsight/lattigo/v6.
package backend

import "fmt"

// RawCt is an opaque handle to a backend ciphertext. Callers outside this
// package never inspect it; it exists so the evaluator package can carry
// ciphertext state without importing a concrete CKKS library.
type RawCt interface{}

// RawPt is an opaque handle to a backend plaintext, produced by Encode and
// consumed by Encrypt.
type RawPt interface{}

// Backend is the contract every CKKS implementation plugged into evalkit
// must satisfy. Every method may fail with an *Error wrapping the backend's
// own failure; such a failure is fatal to whatever circuit triggered it.
type Backend interface {
	// Encode turns vec (padded or truncated to SlotCount()) into a RawPt at
	// the given level and scale.
	Encode(vec []float64, level int, scale float64) (RawPt, error)
	// Encrypt turns a RawPt into a fresh RawCt.
	Encrypt(pt RawPt) (RawCt, error)
	// Decrypt recovers the approximate plaintext vector carried by ct.
	Decrypt(ct RawCt) ([]float64, error)

	AddCt(a, b RawCt) (RawCt, error)
	AddPlain(a RawCt, pt RawPt) (RawCt, error)
	SubCt(a, b RawCt) (RawCt, error)
	SubPlain(a RawCt, pt RawPt) (RawCt, error)
	Negate(a RawCt) (RawCt, error)
	MulCt(a, b RawCt) (RawCt, error)
	MulPlain(a RawCt, pt RawPt) (RawCt, error)
	Square(a RawCt) (RawCt, error)
	Relinearize(a RawCt) (RawCt, error)
	RescaleToNext(a RawCt) (RawCt, error)
	ModSwitchToLevel(a RawCt, level int) (RawCt, error)
	Rotate(a RawCt, steps int) (RawCt, error)

	// Level and Scale report the metadata of a ciphertext as seen by the
	// backend; used by HomomorphicEval to populate its own Ciphertext
	// metadata from the raw handle after an operation.
	Level(a RawCt) int
	Scale(a RawCt) float64

	// SlotCount and MaxLevel describe the fixed parameters this Backend was
	// constructed with.
	SlotCount() int
	MaxLevel() int
	// ModulusChain returns the ordered sequence of prime moduli consumed
	// one per rescale, indexed by level (ModulusChain()[level] is the prime
	// consumed by RescaleToNext when the ciphertext is currently at level).
	ModulusChain() []uint64

	// SerializeCt and DeserializeCt implement the backend half of the
	// container persistence format: the backend-native ciphertext bytes
	// that follow evalkit's own shape/metadata header.
	SerializeCt(a RawCt) ([]byte, error)
	DeserializeCt(data []byte) (RawCt, error)
}

// Error wraps a failure raised by a concrete Backend implementation. Code
// is a short machine-readable tag (e.g. "rescale", "rotate"); Err is the
// backend's own error, preserved as the cause.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error tagging err with code, or returns nil if err is nil.
func Wrap(code string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}
