package evaluator

import (
	"math"
	"testing"

	"github.com/ckks-eval/evalkit/backend"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) backend.Backend {
	t.Helper()
	b, _, err := backend.NewLattigoBackend(10, []int{55, 45, 45, 45}, []int{60}, 45)
	require.NoError(t, err)
	return b
}

func TestHomomorphicEvalMultiplyPlainScalarHalf(t *testing.T) {
	// Seed scenario 6, simplified to MultiplyPlainScalar: encrypt a
	// vector, multiply by 0.5, decrypt, and check against the expected
	// values within MAX_NORM.
	b := newTestBackend(t)
	h := NewHomomorphicEval(b)

	vec := make([]float64, h.SlotCount())
	for i := range vec {
		vec[i] = float64(i + 1)
	}
	ct, err := h.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)

	out, err := h.MultiplyPlainScalar(ct, 0.5)
	require.NoError(t, err)

	got, err := h.Decrypt(out)
	require.NoError(t, err)
	for i := range vec {
		require.InDelta(t, vec[i]*0.5, got[i], 1e-2)
	}
}

func TestHomomorphicEvalMultiplyPlainScalarZeroIsDistinguished(t *testing.T) {
	b := newTestBackend(t)
	h := NewHomomorphicEval(b)

	vec := make([]float64, h.SlotCount())
	for i := range vec {
		vec[i] = 7
	}
	ct, err := h.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)

	out, err := h.MultiplyPlainScalar(ct, 0)
	require.NoError(t, err)
	require.Equal(t, ct.Level(), out.Level())
	require.Equal(t, ct.Scale(), out.Scale())

	got, err := h.Decrypt(out)
	require.NoError(t, err)
	for _, v := range got {
		require.InDelta(t, 0, v, 1e-2)
	}
}

func TestHomomorphicEvalRelinearizeThenMultiplyAgain(t *testing.T) {
	b := newTestBackend(t)
	h := NewHomomorphicEval(b)

	vec := make([]float64, h.SlotCount())
	for i := range vec {
		vec[i] = 2
	}
	ct, err := h.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)

	sq, err := h.Square(ct)
	require.NoError(t, err)
	sq, err = h.Relinearize(sq)
	require.NoError(t, err)
	sq, err = h.RescaleToNext(sq)
	require.NoError(t, err)

	got, err := h.Decrypt(sq)
	require.NoError(t, err)
	require.InDelta(t, 4.0, got[0], 1e-1)
}
