package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ckks-eval/evalkit/internal/config"
	"github.com/stretchr/testify/require"
)

func writeCircuit(t *testing.T, c circuitFile) string {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "circuit.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testBackendLiteral() config.Literal {
	return config.Literal{
		LogN:            14,
		LogQ:            []int{55, 45, 45, 45},
		LogP:            []int{60},
		LogDefaultScale: 45,
	}
}

// testInput returns a full slotCount-length vector (8192 for testBackendLiteral).
func testInput() []float64 {
	vec := make([]float64, 1<<13)
	for i := range vec {
		vec[i] = float64(i % 8)
	}
	return vec
}

func TestRunDepthFinderVariant(t *testing.T) {
	path := writeCircuit(t, circuitFile{
		Backend: testBackendLiteral(),
		Input:   testInput(),
		Level:   -1,
		Scale:   1 << 45,
		Ops: []opSpec{
			{Op: "square"},
			{Op: "relinearize"},
			{Op: "rescale"},
			{Op: "square"},
			{Op: "relinearize"},
			{Op: "rescale"},
		},
	})

	err := run(context.Background(), "depthfinder", path, config.DefaultScaleSafetyMargin, false)
	require.NoError(t, err)
}

func TestRunHomomorphicVariant(t *testing.T) {
	path := writeCircuit(t, circuitFile{
		Backend: testBackendLiteral(),
		Input:   testInput(),
		Level:   -1,
		Scale:   1 << 45,
		Ops: []opSpec{
			{Op: "multiplyPlainScalar", Scalar: 0.5},
		},
	})

	err := run(context.Background(), "homomorphic", path, config.DefaultScaleSafetyMargin, false)
	require.NoError(t, err)
}

func TestRunUnknownVariant(t *testing.T) {
	path := writeCircuit(t, circuitFile{Backend: testBackendLiteral(), Input: []float64{1}})
	err := run(context.Background(), "nonsense", path, config.DefaultScaleSafetyMargin, false)
	require.Error(t, err)
}

func TestRunCircuitHonorsCanceledContext(t *testing.T) {
	path := writeCircuit(t, circuitFile{
		Backend: testBackendLiteral(),
		Input:   testInput(),
		Level:   -1,
		Scale:   1 << 45,
		Ops: []opSpec{
			{Op: "square"},
			{Op: "relinearize"},
			{Op: "rescale"},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, "depthfinder", path, config.DefaultScaleSafetyMargin, false)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunUnknownOp(t *testing.T) {
	path := writeCircuit(t, circuitFile{
		Backend: testBackendLiteral(),
		Input:   testInput(),
		Level:   -1,
		Scale:   1 << 45,
		Ops:     []opSpec{{Op: "not-a-real-op"}},
	})
	err := run(context.Background(), "depthfinder", path, config.DefaultScaleSafetyMargin, false)
	require.Error(t, err)
}
