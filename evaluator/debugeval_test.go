package evaluator

import (
	"math"
	"testing"

	"github.com/ckks-eval/evalkit/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDebugEvalCrossChecksMultiplyPlainScalar(t *testing.T) {
	// Seed scenario 6: DebugEval running Homomorphic+ScaleEstimator,
	// encrypt a vector, multiplyPlain(0.5), decrypt; expect elementwise
	// halved values within MAX_NORM, with no DebugInconsistency.
	b := newTestBackend(t)
	d := NewDebugEval(b, 218, config.DefaultScaleSafetyMargin, nil)

	vec := make([]float64, d.SlotCount())
	for i := range vec {
		vec[i] = float64(i + 1)
	}
	ct, err := d.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)

	out, err := d.MultiplyPlainScalar(ct, 0.5)
	require.NoError(t, err)

	got, err := d.Decrypt(out)
	require.NoError(t, err)
	for i := range vec {
		require.InDelta(t, vec[i]*0.5, got[i], 1e-2)
	}
}

func TestDebugEvalFullCircuitStaysConsistent(t *testing.T) {
	b := newTestBackend(t)
	d := NewDebugEval(b, 218, config.DefaultScaleSafetyMargin, nil)

	vec := make([]float64, d.SlotCount())
	for i := range vec {
		vec[i] = 2
	}
	ct, err := d.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)

	sq, err := d.Square(ct)
	require.NoError(t, err)
	sq, err = d.Relinearize(sq)
	require.NoError(t, err)
	sq, err = d.RescaleToNext(sq)
	require.NoError(t, err)

	got, err := d.Decrypt(sq)
	require.NoError(t, err)
	require.InDelta(t, 4.0, got[0], 1e-1)
	require.Less(t, math.Log2(sq.Scale()), d.GetEstimatedMaxLogScale()+1)
}

func TestDebugEvalRejectsScaleMismatchBetweenOperands(t *testing.T) {
	b := newTestBackend(t)
	d := NewDebugEval(b, 218, config.DefaultScaleSafetyMargin, nil)

	vec := make([]float64, d.SlotCount())
	a, err := d.Encrypt(vec, -1, math.Exp2(45))
	require.NoError(t, err)
	bCt, err := d.Encrypt(vec, -1, math.Exp2(30))
	require.NoError(t, err)

	_, err = d.Add(a, bCt)
	require.ErrorIs(t, err, ErrScaleMismatch)
}
