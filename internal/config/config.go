// Package config holds the small static tables and literal-style parameter
// structs that the rest of evalkit is built against: the ring-dimension to
// modulus-budget table from the backend contract, the default safety margin
// used by the scale estimator, and a JSON-friendly literal for wiring a
// backend from a config file or a CLI flag.
package config

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrParameter is the sentinel wrapped by MaxModBitsFor and MinRingDimFor
// when the requested ring dimension or modulus budget falls outside the
// static table. It is the config-level counterpart of evaluator.ErrParameter
// (config cannot import evaluator without creating an import cycle through
// backend), and callers that need to tell it apart from other config errors
// should use errors.Is against it rather than string matching.
var ErrParameter = errors.New("config: parameter out of range")

// DefaultScaleSafetyMargin is the number of bits of slack ScaleEstimator
// subtracts from the raw modulus budget before reporting a safe scale.
// The distilled design does not give an exact value; 60 bits matches the
// size of a single modulus prime in the backend's default parameter sets,
// so a computation that saturates the estimate still has one full prime
// of headroom before the next rescale.
const DefaultScaleSafetyMargin = 60.0

// ringDimToMaxModBits is the fixed table mapping a power-of-two ring
// dimension to the maximum total coefficient-modulus bit budget for which
// the backend's default security parameters are considered safe.
var ringDimToMaxModBits = map[int]int{
	1024:  27,
	2048:  54,
	4096:  109,
	8192:  218,
	16384: 438,
	32768: 881,
	65536: 1761,
}

// MaxModBitsFor returns the maximum total modulus bit budget for ringDim,
// as defined by the fixed degree-to-budget table.
func MaxModBitsFor(ringDim int) (int, error) {
	bits, ok := ringDimToMaxModBits[ringDim]
	if !ok {
		return 0, fmt.Errorf("config: ring dimension %d is not in the supported table: %w", ringDim, ErrParameter)
	}
	return bits, nil
}

// MinRingDimFor returns the smallest ring dimension whose modulus budget
// is at least modBits, i.e. the inverse of MaxModBitsFor.
func MinRingDimFor(modBits int) (int, error) {
	for _, ringDim := range SupportedRingDims() {
		if ringDimToMaxModBits[ringDim] >= modBits {
			return ringDim, nil
		}
	}
	return 0, fmt.Errorf("config: no ring dimension in the supported table covers %d modulus bits: %w", modBits, ErrParameter)
}

// SupportedRingDims returns the ring dimensions covered by the modulus
// budget table, sorted ascending; used by the CLI's help text and by
// MinRingDimFor's search.
func SupportedRingDims() []int {
	dims := maps.Keys(ringDimToMaxModBits)
	slices.Sort(dims)
	return dims
}

// Literal is an unchecked, JSON-friendly description of the backend
// parameters, mirroring the way the backend's own ParametersLiteral type is
// used: public fields, no validation at construction, validated only when
// turned into an actual backend by backend.NewFromLiteral.
type Literal struct {
	LogN            int   `json:"logN"`
	LogQ            []int `json:"logQ"`
	LogP            []int `json:"logP"`
	LogDefaultScale int   `json:"logDefaultScale"`
}
