package workpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunExecutesEveryJob(t *testing.T) {
	const n = 50
	var seen [n]int32
	err := Run(n, 8, func(i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	require.NoError(t, err)
	for i, v := range seen {
		require.Equal(t, int32(1), v, "job %d", i)
	}
}

func TestRunSequentialWhenWorkersIsOne(t *testing.T) {
	var order []int
	err := Run(5, 1, func(i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRunReportsFirstError(t *testing.T) {
	sentinel := errors.New("boom")
	err := Run(10, 4, func(i int) error {
		if i == 3 {
			return sentinel
		}
		return nil
	})
	require.ErrorIs(t, err, sentinel)
}

func TestRunZeroJobsIsNoop(t *testing.T) {
	called := false
	err := Run(0, 4, func(i int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, called)
}
