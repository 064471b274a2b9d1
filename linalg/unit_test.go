package linalg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUnitDerivesWidth(t *testing.T) {
	u, err := NewUnit(4, 8)
	require.NoError(t, err)
	require.Equal(t, 4, u.H)
	require.Equal(t, 2, u.W)
	require.Equal(t, 8, u.Size())
}

func TestNewUnitRejectsNonDivisor(t *testing.T) {
	_, err := NewUnit(3, 8)
	require.Error(t, err)
}

func TestNewUnitRejectsNonPowerOfTwoWidth(t *testing.T) {
	// slotCount/h must itself be a power of two.
	_, err := NewUnit(5, 15)
	require.Error(t, err)
}

func TestUnitEqual(t *testing.T) {
	a := Unit{H: 4, W: 2}
	b := Unit{H: 4, W: 2}
	c := Unit{H: 2, W: 4}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
