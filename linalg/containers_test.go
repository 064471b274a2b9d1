package linalg

import (
	"testing"

	"github.com/ckks-eval/evalkit/evaluator"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// ctComparer compares ciphertexts by their exported view rather than their
// unexported fields, since evaluator.Ciphertext carries backend-internal
// state go-cmp cannot inspect directly.
var ctComparer = cmp.Comparer(func(a, b *evaluator.Ciphertext) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Level() != b.Level() || a.Scale() != b.Scale() || a.SlotCount() != b.SlotCount() {
		return false
	}
	av, aok := a.Plaintext()
	bv, bok := b.Plaintext()
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
})

func TestMatrixBinaryRoundTrip(t *testing.T) {
	p := evaluator.NewPlaintextEval(8, 3, chain(4))
	la := New(p.Evaluator, 1)
	unit, err := NewUnit(4, 8)
	require.NoError(t, err)

	mat := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
		{13, 14, 15},
	}
	m, err := la.EncryptMatrix(mat, unit, -1, 1<<30)
	require.NoError(t, err)

	data, err := m.MarshalBinary()
	require.NoError(t, err)

	var got Matrix
	require.NoError(t, got.UnmarshalBinary(data))

	require.Empty(t, cmp.Diff(m, &got, ctComparer))
}

func TestRowVectorBinaryRoundTrip(t *testing.T) {
	p := evaluator.NewPlaintextEval(8, 3, chain(4))
	la := New(p.Evaluator, 1)
	unit, err := NewUnit(4, 8)
	require.NoError(t, err)

	rv, err := la.EncryptRowVector([]float64{1, 2, 3, 4, 5}, unit, -1, 1<<30)
	require.NoError(t, err)

	data, err := rv.MarshalBinary()
	require.NoError(t, err)

	var got RowVector
	require.NoError(t, got.UnmarshalBinary(data))

	require.Empty(t, cmp.Diff(rv, &got, ctComparer))
}

func TestColVectorBinaryRoundTripTruncatedIsError(t *testing.T) {
	p := evaluator.NewPlaintextEval(8, 3, chain(4))
	la := New(p.Evaluator, 1)
	unit, err := NewUnit(4, 8)
	require.NoError(t, err)

	cv, err := la.EncryptColVector([]float64{1, 2, 3, 4, 5}, unit, -1, 1<<30)
	require.NoError(t, err)

	data, err := cv.MarshalBinary()
	require.NoError(t, err)

	var got ColVector
	require.Error(t, got.UnmarshalBinary(data[:len(data)-3]))
}
