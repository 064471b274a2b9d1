package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// runLevelTrajectory runs a tiny scripted circuit shared across variants to check the
// cross-mode level-trajectory identity (§8: every variant must compute the
// same level trajectory as DepthFinder for the same circuit).
func runLevelTrajectory(t *testing.T, e interface {
	Encrypt(vec []float64, level int, scale float64) (*Ciphertext, error)
	Multiply(a, b *Ciphertext) (*Ciphertext, error)
	Relinearize(ct *Ciphertext) (*Ciphertext, error)
	RescaleToNext(ct *Ciphertext) (*Ciphertext, error)
	RotateLeft(ct *Ciphertext, steps int) (*Ciphertext, error)
	Add(a, b *Ciphertext) (*Ciphertext, error)
}) []int {
	t.Helper()
	vec := []float64{1, 2, 3, 4}
	ct, err := e.Encrypt(vec, -1, 1<<30)
	require.NoError(t, err)
	levels := []int{ct.Level()}

	ct, err = e.Multiply(ct, ct)
	require.NoError(t, err)
	ct, err = e.Relinearize(ct)
	require.NoError(t, err)
	ct, err = e.RescaleToNext(ct)
	require.NoError(t, err)
	levels = append(levels, ct.Level())

	rot, err := e.RotateLeft(ct, 1)
	require.NoError(t, err)
	ct, err = e.Add(ct, rot)
	require.NoError(t, err)
	levels = append(levels, ct.Level())

	return levels
}

func TestCrossModeLevelTrajectoryIdentity(t *testing.T) {
	chain := testModulusChain(4)
	want := runLevelTrajectory(t, NewDepthFinder(4, 3, chain))

	got := runLevelTrajectory(t, NewPlaintextEval(4, 3, chain))
	require.Equal(t, want, got)

	got = runLevelTrajectory(t, NewScaleEstimator(4, 3, chain, 218, 60))
	require.Equal(t, want, got)

	got = runLevelTrajectory(t, NewOpCount(4, 3, chain))
	require.Equal(t, want, got)
}

func TestAddPlainScalarBroadcasts(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	out, err := p.AddPlainScalar(ct, 10)
	require.NoError(t, err)
	vec, _ := out.Plaintext()
	require.Equal(t, []float64{11, 12, 13, 14}, vec)
}

func TestPlainVectorShapeMismatchIsShapeError(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	_, err = p.AddPlainVector(ct, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrShape)
}

func TestEncryptVectorShapeMismatchIsShapeError(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	_, err := p.Encrypt([]float64{1, 2, 3}, -1, 1<<30)
	require.ErrorIs(t, err, ErrShape)
}

func TestEncryptInvalidLevelIsParameterError(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	_, err := p.Encrypt([]float64{1, 2, 3, 4}, 5, 1<<30)
	require.ErrorIs(t, err, ErrParameter)
}

func TestEncryptSentinelLevelUsesMaxLevel(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)
	require.Equal(t, 3, ct.Level())
}

func TestRotateStepsAtHalfSlotCountIsParameterError(t *testing.T) {
	p := NewPlaintextEval(4, 3, testModulusChain(4))
	ct, err := p.Encrypt([]float64{1, 2, 3, 4}, -1, 1<<30)
	require.NoError(t, err)

	_, err = p.RotateLeft(ct, 2)
	require.ErrorIs(t, err, ErrParameter)

	_, err = p.RotateRight(ct, 2)
	require.ErrorIs(t, err, ErrParameter)

	_, err = p.RotateLeft(ct, 1)
	require.NoError(t, err)
}
