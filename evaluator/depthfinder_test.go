package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testModulusChain(n int) []uint64 {
	chain := make([]uint64, n)
	for i := range chain {
		chain[i] = 1 << 45
	}
	return chain
}

func TestDepthFinderTracksLevelAndDepth(t *testing.T) {
	// Seed scenario 2: initial level 3, two multiply/relinearize/rescale
	// rounds, expect level 1 and depth 2.
	d := NewDepthFinder(8, 3, testModulusChain(4))

	ct, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)
	require.Equal(t, 3, ct.Level())

	for i := 0; i < 2; i++ {
		ct, err = d.Multiply(ct, ct)
		require.NoError(t, err)
		ct, err = d.Relinearize(ct)
		require.NoError(t, err)
		ct, err = d.RescaleToNext(ct)
		require.NoError(t, err)
	}

	require.Equal(t, 1, ct.Level())
	require.Equal(t, 2, d.GetMultiplicativeDepth())
}

func TestDepthFinderRescaleAtZeroFails(t *testing.T) {
	d := NewDepthFinder(8, 0, testModulusChain(1))
	ct, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)

	_, err = d.RescaleToNext(ct)
	require.ErrorIs(t, err, ErrLevelMismatch)
}

func TestDepthFinderModSwitchSetsLevel(t *testing.T) {
	d := NewDepthFinder(8, 3, testModulusChain(4))
	ct, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)

	ct, err = d.ModSwitchToLevel(ct, 1)
	require.NoError(t, err)
	require.Equal(t, 1, ct.Level())
	require.Equal(t, 2, d.GetMultiplicativeDepth())

	_, err = d.ModSwitchToLevel(ct, 2)
	require.ErrorIs(t, err, ErrLevelMismatch)
}

func TestDepthFinderResetClearsDepthNotLevel(t *testing.T) {
	d := NewDepthFinder(8, 3, testModulusChain(4))
	ct, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)
	ct, err = d.RescaleToNext(ct)
	require.NoError(t, err)
	require.Equal(t, 1, d.GetMultiplicativeDepth())

	d.Reset()
	require.Equal(t, 0, d.GetMultiplicativeDepth())
	require.Equal(t, 2, ct.Level())
}

func TestCheckBinaryCompatibleRejectsLevelAndSlotMismatch(t *testing.T) {
	d := NewDepthFinder(8, 3, testModulusChain(4))
	a, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)
	b, err := d.Encrypt(make([]float64, 8), 1, 1<<30)
	require.NoError(t, err)

	_, err = d.Add(a, b)
	require.ErrorIs(t, err, ErrLevelMismatch)

	other := NewDepthFinder(4, 3, testModulusChain(4))
	c, err := other.Encrypt(make([]float64, 4), -1, 1<<30)
	require.NoError(t, err)
	_, err = d.Add(a, c)
	require.ErrorIs(t, err, ErrShape)
}

func TestRotationStepsOutOfRangeIsParameterError(t *testing.T) {
	d := NewDepthFinder(8, 3, testModulusChain(4))
	ct, err := d.Encrypt(make([]float64, 8), -1, 1<<30)
	require.NoError(t, err)

	_, err = d.RotateLeft(ct, 0)
	require.ErrorIs(t, err, ErrParameter)
	_, err = d.RotateLeft(ct, 4)
	require.ErrorIs(t, err, ErrParameter)
	_, err = d.RotateLeft(ct, 3)
	require.NoError(t, err)
}

func TestUninitializedCiphertextRejected(t *testing.T) {
	d := NewDepthFinder(8, 3, testModulusChain(4))
	_, err := d.Negate(&Ciphertext{})
	require.ErrorIs(t, err, ErrUninitialized)
}
