package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaintextEvalAddPlain(t *testing.T) {
	// Seed scenario 3.
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<40)
	require.NoError(t, err)

	ct, err = p.AddPlainVector(ct, []float64{10, 20, 30, 40})
	require.NoError(t, err)

	rawPt, ok := ct.Plaintext()
	require.True(t, ok)
	require.Equal(t, []float64{11, 22, 33, 44}, rawPt)
	require.Equal(t, 3, ct.Level())
	require.Equal(t, 1<<40, int(ct.Scale()))
}

func TestPlaintextEvalRotateIsCyclicShift(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	rotated, err := p.RotateLeft(ct, 1)
	require.NoError(t, err)
	vec, _ := rotated.Plaintext()
	require.Equal(t, []float64{2, 3, 4, 1}, vec)

	rotated, err = p.RotateRight(ct, 1)
	require.NoError(t, err)
	vec, _ = rotated.Plaintext()
	require.Equal(t, []float64{4, 1, 2, 3}, vec)
}

func TestPlaintextEvalMultiplyIsElementwise(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	a, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)
	b, err := p.Encrypt([]float64{2, 2, 2, 2}, -1, 1<<30)
	require.NoError(t, err)

	out, err := p.Multiply(a, b)
	require.NoError(t, err)
	vec, _ := out.Plaintext()
	require.Equal(t, []float64{2, 4, 6, 8}, vec)
	require.Equal(t, float64(1<<30)*float64(1<<30), out.Scale())
}

func TestPlaintextEvalMultiplyPlainZeroBypassesElementwise(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	a, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	out, err := p.MultiplyPlainVector(a, []float64{0, 0, 0, 0})
	require.NoError(t, err)
	vec, _ := out.Plaintext()
	require.Equal(t, []float64{0, 0, 0, 0}, vec)
	require.Equal(t, a.Level(), out.Level())
	require.Equal(t, a.Scale(), out.Scale())
}

func TestPlaintextEvalRunningMaxAbs(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	_, err := p.Encrypt([]float64{1, -2, 3, -4}, -1, 1<<30)
	require.NoError(t, err)
	require.Equal(t, 4.0, p.GetExactMaxPlainVal())

	_, err = p.Encrypt([]float64{1, 1, 1, 1}, -1, 1<<30)
	require.NoError(t, err)
	require.Equal(t, 4.0, p.GetExactMaxPlainVal())

	p.UpdatePlaintextMaxVal(10)
	require.Equal(t, 10.0, p.GetExactMaxPlainVal())

	p.Reset()
	require.Equal(t, 0.0, p.GetExactMaxPlainVal())
}
