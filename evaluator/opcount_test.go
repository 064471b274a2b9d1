package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpCountSeedScenario(t *testing.T) {
	// Seed scenario 5: multiply; rotate(1); add; modSwitchToLevel(L-2)
	// from level L=3. Expect multiplies=1, additions=2 (1 explicit + 1
	// from rotate), rotations=1, modDowns=1, modDownLevels=2.
	o := NewOpCount(4, 3, testModulusChain(4))

	a, err := o.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)
	b, err := o.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	prod, err := o.Multiply(a, b)
	require.NoError(t, err)

	rotated, err := o.RotateLeft(prod, 1)
	require.NoError(t, err)

	sum, err := o.Add(rotated, prod)
	require.NoError(t, err)

	_, err = o.ModSwitchToLevel(sum, 1)
	require.NoError(t, err)

	counters := o.PrintOpCount()
	require.Equal(t, OpCounters{
		Multiplies:               1,
		Additions:                2,
		Negations:                0,
		Rotations:                1,
		ModDownInvocations:       1,
		ModDownAccumulatedLevels: 2,
	}, counters)
}

func TestOpCountModSwitchNoopDoesNotCount(t *testing.T) {
	o := NewOpCount(4, 3, testModulusChain(4))
	ct, err := o.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	_, err = o.ModSwitchToLevel(ct, 3)
	require.NoError(t, err)

	counters := o.PrintOpCount()
	require.Equal(t, 0, counters.ModDownInvocations)
}

func TestOpCountInvarianceAcrossResets(t *testing.T) {
	o := NewOpCount(4, 3, testModulusChain(4))

	run := func() OpCounters {
		a, err := o.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
		require.NoError(t, err)
		b, err := o.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
		require.NoError(t, err)
		_, err = o.Multiply(a, b)
		require.NoError(t, err)
		return o.PrintOpCount()
	}

	first := run()
	o.Reset()
	second := run()
	require.Equal(t, first, second)
}
