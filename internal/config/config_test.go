package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxModBitsForKnownTable(t *testing.T) {
	cases := map[int]int{
		1024:  27,
		2048:  54,
		4096:  109,
		8192:  218,
		16384: 438,
		32768: 881,
		65536: 1761,
	}
	for ringDim, want := range cases {
		got, err := MaxModBitsFor(ringDim)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestMaxModBitsForUnknownRingDim(t *testing.T) {
	_, err := MaxModBitsFor(100)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrParameter))
}

func TestMinRingDimForInverse(t *testing.T) {
	got, err := MinRingDimFor(200)
	require.NoError(t, err)
	require.Equal(t, 8192, got)
}

func TestMinRingDimForExceedsTable(t *testing.T) {
	_, err := MinRingDimFor(5000)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrParameter))
}

func TestSupportedRingDimsSortedAscending(t *testing.T) {
	dims := SupportedRingDims()
	require.Equal(t, []int{1024, 2048, 4096, 8192, 16384, 32768, 65536}, dims)
}
