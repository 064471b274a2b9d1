package linalg

import (
	"encoding/binary"
	"fmt"

	"github.com/ckks-eval/evalkit/backend"
	"github.com/ckks-eval/evalkit/evaluator"
)

// RowVector is a grid-of-ciphertexts container for a row vector of logical
// length Width, packed ⌈Width/unit.W⌉ wide; each tile broadcasts its
// unit.W-wide slice down all unit.H rows.
type RowVector struct {
	Width int
	Unit  Unit
	Cts   []*evaluator.Ciphertext
}

// ColVector is the dual of RowVector: a column vector of logical length
// Height, packed ⌈Height/unit.H⌉ tall; each tile broadcasts its unit.H-tall
// slice across all unit.W columns.
type ColVector struct {
	Height int
	Unit   Unit
	Cts    []*evaluator.Ciphertext
}

// Matrix is a grid-of-ciphertexts container for a Height×Width matrix,
// tiled into a ⌈Height/unit.H⌉ × ⌈Width/unit.W⌉ rectangular grid.
type Matrix struct {
	Height, Width int
	Unit          Unit
	Cts           [][]*evaluator.Ciphertext
}

func (rv *RowVector) tileCount() int { return ceilDiv(rv.Width, rv.Unit.W) }
func (cv *ColVector) tileCount() int { return ceilDiv(cv.Height, cv.Unit.H) }
func (m *Matrix) rowTiles() int      { return ceilDiv(m.Height, m.Unit.H) }
func (m *Matrix) colTiles() int      { return ceilDiv(m.Width, m.Unit.W) }

func checkUnitMatch(a, b Unit) error {
	if !a.Equal(b) {
		return fmt.Errorf("linalg: encoding unit mismatch (%d,%d) vs (%d,%d): %w", a.H, a.W, b.H, b.W, evaluator.ErrShape)
	}
	return nil
}

func (rv *RowVector) validate() error {
	if len(rv.Cts) != rv.tileCount() {
		return fmt.Errorf("linalg: row vector of width %d on unit (%d,%d) needs %d tiles, has %d: %w",
			rv.Width, rv.Unit.H, rv.Unit.W, rv.tileCount(), len(rv.Cts), evaluator.ErrShape)
	}
	return nil
}

func (cv *ColVector) validate() error {
	if len(cv.Cts) != cv.tileCount() {
		return fmt.Errorf("linalg: column vector of height %d on unit (%d,%d) needs %d tiles, has %d: %w",
			cv.Height, cv.Unit.H, cv.Unit.W, cv.tileCount(), len(cv.Cts), evaluator.ErrShape)
	}
	return nil
}

func (m *Matrix) validate() error {
	r, c := m.rowTiles(), m.colTiles()
	if len(m.Cts) != r {
		return fmt.Errorf("linalg: matrix %dx%d on unit (%d,%d) needs %d row tiles, has %d: %w",
			m.Height, m.Width, m.Unit.H, m.Unit.W, r, len(m.Cts), evaluator.ErrShape)
	}
	for i, row := range m.Cts {
		if len(row) != c {
			return fmt.Errorf("linalg: matrix row tile %d has %d column tiles, want %d: %w", i, len(row), c, evaluator.ErrShape)
		}
	}
	return nil
}

// --- container persistence (§6): a length-prefixed shape header followed by
// each cell's own evaluator.Ciphertext wire format. ---

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendCell(buf []byte, ct *evaluator.Ciphertext, b backend.Backend) ([]byte, error) {
	cellBytes, err := ct.MarshalBinaryWithBackend(b)
	if err != nil {
		return nil, err
	}
	buf = appendInt64(buf, int64(len(cellBytes)))
	return append(buf, cellBytes...), nil
}

type containerReader struct {
	buf []byte
	off int
	err error
}

func (r *containerReader) int64() int64 {
	if r.err != nil || r.off+8 > len(r.buf) {
		r.err = fmt.Errorf("linalg: truncated container record")
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return int64(v)
}

func (r *containerReader) cell(b backend.Backend) *evaluator.Ciphertext {
	n := r.int64()
	if r.err != nil {
		return nil
	}
	if r.off+int(n) > len(r.buf) {
		r.err = fmt.Errorf("linalg: truncated container record")
		return nil
	}
	data := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	ct := &evaluator.Ciphertext{}
	if err := ct.UnmarshalBinaryWithBackend(data, b); err != nil {
		r.err = err
		return nil
	}
	return ct
}

// MarshalBinary implements encoding.BinaryMarshaler without backend-native
// ciphertext bytes; use MarshalBinaryWithBackend to round-trip a
// HomomorphicEval/DebugEval-produced vector.
func (rv *RowVector) MarshalBinary() ([]byte, error) { return rv.MarshalBinaryWithBackend(nil) }

// MarshalBinaryWithBackend serializes rv, including backend-native
// ciphertext bytes for each tile when b is non-nil.
func (rv *RowVector) MarshalBinaryWithBackend(b backend.Backend) ([]byte, error) {
	buf := appendInt64(nil, int64(rv.Width))
	buf = appendInt64(buf, int64(rv.Unit.H))
	buf = appendInt64(buf, int64(rv.Unit.W))
	buf = appendInt64(buf, int64(len(rv.Cts)))
	for _, ct := range rv.Cts {
		var err error
		buf, err = appendCell(buf, ct, b)
		if err != nil {
			return nil, fmt.Errorf("linalg: marshal row vector: %w", err)
		}
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, without restoring
// backend-native ciphertexts.
func (rv *RowVector) UnmarshalBinary(data []byte) error {
	return rv.UnmarshalBinaryWithBackend(data, nil)
}

// UnmarshalBinaryWithBackend is the dual of MarshalBinaryWithBackend.
func (rv *RowVector) UnmarshalBinaryWithBackend(data []byte, b backend.Backend) error {
	r := &containerReader{buf: data}
	rv.Width = int(r.int64())
	rv.Unit = Unit{H: int(r.int64()), W: int(r.int64())}
	n := int(r.int64())
	rv.Cts = make([]*evaluator.Ciphertext, n)
	for i := range rv.Cts {
		rv.Cts[i] = r.cell(b)
	}
	return r.err
}

// MarshalBinary implements encoding.BinaryMarshaler for ColVector.
func (cv *ColVector) MarshalBinary() ([]byte, error) { return cv.MarshalBinaryWithBackend(nil) }

// MarshalBinaryWithBackend serializes cv, including backend-native
// ciphertext bytes for each tile when b is non-nil.
func (cv *ColVector) MarshalBinaryWithBackend(b backend.Backend) ([]byte, error) {
	buf := appendInt64(nil, int64(cv.Height))
	buf = appendInt64(buf, int64(cv.Unit.H))
	buf = appendInt64(buf, int64(cv.Unit.W))
	buf = appendInt64(buf, int64(len(cv.Cts)))
	for _, ct := range cv.Cts {
		var err error
		buf, err = appendCell(buf, ct, b)
		if err != nil {
			return nil, fmt.Errorf("linalg: marshal column vector: %w", err)
		}
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for ColVector.
func (cv *ColVector) UnmarshalBinary(data []byte) error {
	return cv.UnmarshalBinaryWithBackend(data, nil)
}

// UnmarshalBinaryWithBackend is the dual of MarshalBinaryWithBackend.
func (cv *ColVector) UnmarshalBinaryWithBackend(data []byte, b backend.Backend) error {
	r := &containerReader{buf: data}
	cv.Height = int(r.int64())
	cv.Unit = Unit{H: int(r.int64()), W: int(r.int64())}
	n := int(r.int64())
	cv.Cts = make([]*evaluator.Ciphertext, n)
	for i := range cv.Cts {
		cv.Cts[i] = r.cell(b)
	}
	return r.err
}

// MarshalBinary implements encoding.BinaryMarshaler for Matrix.
func (m *Matrix) MarshalBinary() ([]byte, error) { return m.MarshalBinaryWithBackend(nil) }

// MarshalBinaryWithBackend serializes m row-major, including backend-native
// ciphertext bytes for each cell when b is non-nil.
func (m *Matrix) MarshalBinaryWithBackend(b backend.Backend) ([]byte, error) {
	buf := appendInt64(nil, int64(m.Height))
	buf = appendInt64(buf, int64(m.Width))
	buf = appendInt64(buf, int64(m.Unit.H))
	buf = appendInt64(buf, int64(m.Unit.W))
	buf = appendInt64(buf, int64(len(m.Cts)))
	for _, row := range m.Cts {
		buf = appendInt64(buf, int64(len(row)))
		for _, ct := range row {
			var err error
			buf, err = appendCell(buf, ct, b)
			if err != nil {
				return nil, fmt.Errorf("linalg: marshal matrix: %w", err)
			}
		}
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Matrix.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	return m.UnmarshalBinaryWithBackend(data, nil)
}

// UnmarshalBinaryWithBackend is the dual of MarshalBinaryWithBackend.
func (m *Matrix) UnmarshalBinaryWithBackend(data []byte, b backend.Backend) error {
	r := &containerReader{buf: data}
	m.Height = int(r.int64())
	m.Width = int(r.int64())
	m.Unit = Unit{H: int(r.int64()), W: int(r.int64())}
	rows := int(r.int64())
	m.Cts = make([][]*evaluator.Ciphertext, rows)
	for i := range m.Cts {
		cols := int(r.int64())
		m.Cts[i] = make([]*evaluator.Ciphertext, cols)
		for j := range m.Cts[i] {
			m.Cts[i][j] = r.cell(b)
		}
	}
	return r.err
}
