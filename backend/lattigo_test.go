package backend

import (
	"math"
	"testing"

	"github.com/ckks-eval/evalkit/internal/config"
	"github.com/stretchr/testify/require"
)

// testLiteral mirrors the insecure small-parameter literals the backend
// module itself uses for fast tests: not secure, just big enough to
// exercise a handful of multiply/rescale rounds.
func testLiteral() (logN int, logQ, logP []int, logScale int) {
	return 10, []int{55, 45, 45, 45}, []int{60}, 45
}

func newTestBackend(t *testing.T) *LattigoBackend {
	t.Helper()
	logN, logQ, logP, logScale := testLiteral()
	b, _, err := NewLattigoBackend(logN, logQ, logP, logScale)
	require.NoError(t, err)
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	vec := make([]float64, b.SlotCount())
	for i := range vec {
		vec[i] = float64(i)
	}

	pt, err := b.Encode(vec, b.MaxLevel(), math.Exp2(45))
	require.NoError(t, err)
	ct, err := b.Encrypt(pt)
	require.NoError(t, err)

	out, err := b.Decrypt(ct)
	require.NoError(t, err)
	for i := range vec {
		require.InDelta(t, vec[i], out[i], 1e-2)
	}
}

func TestAddMulRescale(t *testing.T) {
	b := newTestBackend(t)
	vec := make([]float64, b.SlotCount())
	for i := range vec {
		vec[i] = 2
	}
	scale := math.Exp2(45)
	pt, err := b.Encode(vec, b.MaxLevel(), scale)
	require.NoError(t, err)
	ct, err := b.Encrypt(pt)
	require.NoError(t, err)

	sum, err := b.AddCt(ct, ct)
	require.NoError(t, err)
	sumOut, err := b.Decrypt(sum)
	require.NoError(t, err)
	require.InDelta(t, 4.0, sumOut[0], 1e-2)

	prod, err := b.MulCt(ct, ct)
	require.NoError(t, err)
	prod, err = b.Relinearize(prod)
	require.NoError(t, err)
	prod, err = b.RescaleToNext(prod)
	require.NoError(t, err)
	require.Equal(t, b.MaxLevel()-1, b.Level(prod))

	prodOut, err := b.Decrypt(prod)
	require.NoError(t, err)
	require.InDelta(t, 4.0, prodOut[0], 1e-1)
}

func TestRescaleAtLevelZeroFails(t *testing.T) {
	b := newTestBackend(t)
	vec := make([]float64, b.SlotCount())
	pt, err := b.Encode(vec, 0, math.Exp2(45))
	require.NoError(t, err)
	ct, err := b.Encrypt(pt)
	require.NoError(t, err)

	_, err = b.RescaleToNext(ct)
	require.Error(t, err)
}

func TestRotateComposition(t *testing.T) {
	b := newTestBackend(t)
	vec := make([]float64, b.SlotCount())
	for i := range vec {
		vec[i] = float64(i)
	}
	pt, err := b.Encode(vec, b.MaxLevel(), math.Exp2(45))
	require.NoError(t, err)
	ct, err := b.Encrypt(pt)
	require.NoError(t, err)

	once, err := b.Rotate(ct, 3)
	require.NoError(t, err)
	twice, err := b.Rotate(once, 2)
	require.NoError(t, err)
	direct, err := b.Rotate(ct, 5)
	require.NoError(t, err)

	twiceOut, err := b.Decrypt(twice)
	require.NoError(t, err)
	directOut, err := b.Decrypt(direct)
	require.NoError(t, err)
	for i := range twiceOut {
		require.InDelta(t, directOut[i], twiceOut[i], 1e-2)
	}
}

func TestSerializeDeserializeCtRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	vec := make([]float64, b.SlotCount())
	pt, err := b.Encode(vec, b.MaxLevel(), math.Exp2(45))
	require.NoError(t, err)
	ct, err := b.Encrypt(pt)
	require.NoError(t, err)

	data, err := b.SerializeCt(ct)
	require.NoError(t, err)
	back, err := b.DeserializeCt(data)
	require.NoError(t, err)

	require.Equal(t, b.Level(ct), b.Level(back))
	require.Equal(t, b.Scale(ct), b.Scale(back))
}

func TestModulusChainLength(t *testing.T) {
	b := newTestBackend(t)
	require.Len(t, b.ModulusChain(), b.MaxLevel()+1)
}

func TestNewFromLiteralRejectsOverBudget(t *testing.T) {
	// Ring dimension 1024 (LogN=10) only budgets 27 modulus bits in the
	// static table; the literal below asks for far more.
	lit := config.Literal{
		LogN:            10,
		LogQ:            []int{55, 45, 45, 45},
		LogP:            []int{60},
		LogDefaultScale: 45,
	}
	_, _, err := NewFromLiteral(lit)
	require.Error(t, err)
}
