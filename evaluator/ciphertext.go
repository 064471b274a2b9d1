// Package evaluator implements the evaluator family: a single dispatcher
// type backed by six interchangeable variants (DepthFinder, PlaintextEval,
// ScaleEstimator, OpCount, HomomorphicEval, DebugEval) that all walk the
// same circuit of calls but track different projections of ciphertext
// state. Every variant must compute the same level trajectory as
// DepthFinder for the same sequence of calls — that invariant is what lets
// DebugEval cross-check a homomorphic run against its metadata oracles.
package evaluator

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ckks-eval/evalkit/backend"
)

// Encoding records what a Ciphertext's slots represent when it is a cell of
// a linalg container, so the evaluator family can be shared between bare
// scalars-in-slots computations and the linear-algebra layer above it.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingMatrix
	EncodingRowVec
	EncodingColVec
	EncodingRowMat
	EncodingColMat
)

// Ciphertext is the logical record every evaluator variant operates on.
// HomomorphicEval only ever sets rawCt; DepthFinder sets neither;
// PlaintextEval and its descendants set rawPt; DebugEval sets both.
type Ciphertext struct {
	rawCt backend.RawCt
	rawPt []float64

	level     int
	scale     float64
	slotCount int

	initialized bool

	Height, Width               int
	EncodedHeight, EncodedWidth int
	Encoding                    Encoding
}

// Level returns the ciphertext's current level.
func (ct *Ciphertext) Level() int { return ct.level }

// Scale returns the ciphertext's current scale.
func (ct *Ciphertext) Scale() float64 { return ct.scale }

// SlotCount returns the number of slots the ciphertext was created with.
func (ct *Ciphertext) SlotCount() int { return ct.slotCount }

// Initialized reports whether ct was produced by encryption.
func (ct *Ciphertext) Initialized() bool { return ct.initialized }

// Plaintext returns a copy of the raw plaintext vector carried by ct, if
// any (PlaintextEval and its descendants populate this; DepthFinder and
// HomomorphicEval do not).
func (ct *Ciphertext) Plaintext() ([]float64, bool) {
	if ct.rawPt == nil {
		return nil, false
	}
	out := make([]float64, len(ct.rawPt))
	copy(out, ct.rawPt)
	return out, true
}

// RawCiphertext returns the opaque backend handle carried by ct, if any
// (only HomomorphicEval and DebugEval populate this).
func (ct *Ciphertext) RawCiphertext() (backend.RawCt, bool) {
	if ct.rawCt == nil {
		return nil, false
	}
	return ct.rawCt, true
}

// CopyNew returns a deep, independent copy of ct. Copies never share the
// backing rawPt slice; the backend RawCt handle is immutable in this
// package's usage (every backend operation returns a fresh handle), so it
// is safe to share across copies.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	cpy := *ct
	if ct.rawPt != nil {
		cpy.rawPt = make([]float64, len(ct.rawPt))
		copy(cpy.rawPt, ct.rawPt)
	}
	return &cpy
}

// metadataBinarySize is the number of bytes MarshalBinary writes for the
// shape/metadata header (everything except the backend ciphertext and the
// raw plaintext).
const metadataBinarySize = 8*8 + 1 // level, scale, slotCount, height, width, encodedHeight, encodedWidth, encoding (8 bytes each) + initialized (byte)

// MarshalBinary implements encoding.BinaryMarshaler. The wire format is a
// fixed-size metadata header (level, scale, slot count, shape fields,
// encoding, initialized flag) followed by a length-prefixed rawPt vector (if present)
// and a length-prefixed backend-native ciphertext (if present and a
// Backend is supplied via MarshalBinaryWithBackend). Bare MarshalBinary
// omits the rawCt section; use MarshalBinaryWithBackend to round-trip a
// HomomorphicEval/DebugEval ciphertext.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	return ct.MarshalBinaryWithBackend(nil)
}

// MarshalBinaryWithBackend serializes ct, including the backend-native
// ciphertext bytes (via b.SerializeCt) when ct carries one and b is
// non-nil.
func (ct *Ciphertext) MarshalBinaryWithBackend(b backend.Backend) ([]byte, error) {
	buf := make([]byte, 0, metadataBinarySize+64)
	buf = appendInt64(buf, int64(ct.level))
	buf = appendFloat64(buf, ct.scale)
	buf = appendInt64(buf, int64(ct.slotCount))
	buf = appendInt64(buf, int64(ct.Height))
	buf = appendInt64(buf, int64(ct.Width))
	buf = appendInt64(buf, int64(ct.EncodedHeight))
	buf = appendInt64(buf, int64(ct.EncodedWidth))
	buf = appendInt64(buf, int64(ct.Encoding))
	if ct.initialized {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	if ct.rawPt == nil {
		buf = appendInt64(buf, -1)
	} else {
		buf = appendInt64(buf, int64(len(ct.rawPt)))
		for _, v := range ct.rawPt {
			buf = appendFloat64(buf, v)
		}
	}

	if ct.rawCt == nil || b == nil {
		buf = appendInt64(buf, -1)
		return buf, nil
	}
	ctBytes, err := b.SerializeCt(ct.rawCt)
	if err != nil {
		return nil, fmt.Errorf("evaluator: marshal ciphertext: %w", err)
	}
	buf = appendInt64(buf, int64(len(ctBytes)))
	buf = append(buf, ctBytes...)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, without restoring
// a backend-native ciphertext. Use UnmarshalBinaryWithBackend to restore
// one.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	return ct.UnmarshalBinaryWithBackend(data, nil)
}

// UnmarshalBinaryWithBackend is the dual of MarshalBinaryWithBackend.
func (ct *Ciphertext) UnmarshalBinaryWithBackend(data []byte, b backend.Backend) error {
	r := &reader{buf: data}
	ct.level = int(r.int64())
	ct.scale = r.float64()
	ct.slotCount = int(r.int64())
	ct.Height = int(r.int64())
	ct.Width = int(r.int64())
	ct.EncodedHeight = int(r.int64())
	ct.EncodedWidth = int(r.int64())
	ct.Encoding = Encoding(r.int64())
	ct.initialized = r.byte() == 1

	n := r.int64()
	if n < 0 {
		ct.rawPt = nil
	} else {
		ct.rawPt = make([]float64, n)
		for i := range ct.rawPt {
			ct.rawPt[i] = r.float64()
		}
	}

	n = r.int64()
	if n < 0 || b == nil {
		ct.rawCt = nil
		return r.err
	}
	ctBytes := r.bytes(int(n))
	if r.err != nil {
		return r.err
	}
	raw, err := b.DeserializeCt(ctBytes)
	if err != nil {
		return fmt.Errorf("evaluator: unmarshal ciphertext: %w", err)
	}
	ct.rawCt = raw
	return nil
}

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	return appendInt64(buf, int64(math.Float64bits(v)))
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) int64() int64 {
	if r.err != nil || r.off+8 > len(r.buf) {
		r.err = fmt.Errorf("evaluator: truncated ciphertext record")
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return int64(v)
}

func (r *reader) float64() float64 {
	return math.Float64frombits(uint64(r.int64()))
}

func (r *reader) byte() byte {
	if r.err != nil || r.off+1 > len(r.buf) {
		r.err = fmt.Errorf("evaluator: truncated ciphertext record")
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("evaluator: truncated ciphertext record")
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}
